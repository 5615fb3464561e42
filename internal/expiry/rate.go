package expiry

import (
	"strings"

	"github.com/ppiankov/claimexpiry/internal/host"
)

// RateType selects how the evaluation rate is interpreted
type RateType int

const (
	// RatePercent evaluates a fraction of the generation's population per hour
	RatePercent RateType = iota
	// RateCount evaluates a fixed number of owners per hour
	RateCount
)

const (
	// MinRateValue keeps the delay computation away from division blow-up
	MinRateValue = 0.1
	// DefaultRateValue is used when no rate is configured
	DefaultRateValue = 4.35

	// idleDelay is used while there is nothing to evaluate
	idleDelay = host.TicksPerHour
	// initialDelay postpones the first cycle after start
	initialDelay host.Ticks = 100
)

// ParseRateType matches percent or count case-insensitively.
// Anything else is RatePercent.
func ParseRateType(value string) RateType {
	if strings.EqualFold(strings.TrimSpace(value), "count") {
		return RateCount
	}
	return RatePercent
}

func (t RateType) String() string {
	if t == RateCount {
		return "count"
	}
	return "percent"
}

// Rate is the configured evaluation throughput
type Rate struct {
	Type  RateType
	Value float64
}

// NewRate builds a rate, flooring value at MinRateValue
func NewRate(rateType string, value float64) Rate {
	if value < MinRateValue {
		value = MinRateValue
	}
	return Rate{Type: ParseRateType(rateType), Value: value}
}

// Delay returns the ticks between cycles. population must be the size
// of the generation when it was refreshed, not the remaining candidates,
// so that one generation takes a predictable time to exhaust.
func (r Rate) Delay(population int) host.Ticks {
	value := r.Value
	if value < MinRateValue {
		value = MinRateValue
	}

	var delay float64
	switch r.Type {
	case RateCount:
		delay = float64(host.TicksPerHour) / value
	default:
		if population <= 0 {
			return idleDelay
		}
		delay = float64(host.TicksPerHour) / (value * float64(population))
	}

	if delay < 1 {
		return 1
	}
	return host.Ticks(delay)
}

// GenerationTicks estimates how long a generation of population owners
// takes to exhaust, including the idle wait once it is empty.
func (r Rate) GenerationTicks(population int) host.Ticks {
	if population <= 0 {
		return idleDelay
	}
	return r.Delay(population)*host.Ticks(population-1) + idleDelay
}
