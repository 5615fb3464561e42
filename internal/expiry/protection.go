package expiry

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Never is the protection duration of a claim that does not expire
const Never time.Duration = math.MaxInt64

// Day is the unit configured protection windows are expressed in
const Day = 24 * time.Hour

// DurationTable maps minimum claim areas to protection durations.
// Lookups use floor semantics: the entry at the greatest threshold not
// above the area wins.
type DurationTable struct {
	thresholds []int
	durations  []time.Duration
}

// NewDurationTable builds a table from area thresholds
func NewDurationTable(entries map[int]time.Duration) DurationTable {
	t := DurationTable{
		thresholds: make([]int, 0, len(entries)),
		durations:  make([]time.Duration, 0, len(entries)),
	}
	for area := range entries {
		t.thresholds = append(t.thresholds, area)
	}
	sort.Ints(t.thresholds)
	for _, area := range t.thresholds {
		t.durations = append(t.durations, entries[area])
	}
	return t
}

// Lookup returns the protection duration for a claim of the given area,
// or Never when the area is below every threshold.
func (t DurationTable) Lookup(area int) time.Duration {
	i := sort.SearchInts(t.thresholds, area+1)
	if i == 0 {
		return Never
	}
	return t.durations[i-1]
}

// Shortest returns the smallest positive duration in the table, or Never.
// Zero windows are ignored so that tiny claims do not force every owner
// through a full claim enumeration.
func (t DurationTable) Shortest() time.Duration {
	shortest := Never
	for _, d := range t.durations {
		if d > 0 && d < shortest {
			shortest = d
		}
	}
	return shortest
}

// Len returns the number of thresholds
func (t DurationTable) Len() int {
	return len(t.thresholds)
}

// ProtectionPolicy resolves duration tables per world
type ProtectionPolicy struct {
	Default DurationTable
	Worlds  map[string]DurationTable // Keyed by lower-case world name
}

// For returns the table that applies to claims in world
func (p ProtectionPolicy) For(world string) DurationTable {
	if t, ok := p.Worlds[strings.ToLower(world)]; ok {
		return t
	}
	return p.Default
}

// Shortest returns the smallest positive duration across every table
func (p ProtectionPolicy) Shortest() time.Duration {
	shortest := p.Default.Shortest()
	for _, t := range p.Worlds {
		if d := t.Shortest(); d < shortest {
			shortest = d
		}
	}
	return shortest
}

// ParseDaysPerArea converts a loosely typed area→days mapping.
// Keys that are not whole numbers are reported and skipped. Negative or
// unparseable day counts mean the claim never expires.
func ParseDaysPerArea(raw map[string]interface{}, logger Logger) DurationTable {
	entries := make(map[int]time.Duration, len(raw))
	for key, value := range raw {
		area, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			logger.Warningf("invalid area size %q - must be a whole number", key)
			continue
		}

		days, err := cast.ToIntE(value)
		if err != nil {
			logger.Warningf("invalid day count %v for area %d - must be a whole number", value, area)
			entries[area] = Never
			continue
		}
		entries[area] = daysToDuration(days)
	}
	return NewDurationTable(entries)
}

func daysToDuration(days int) time.Duration {
	if days < 0 {
		return Never
	}
	if int64(days) > int64(Never/Day) {
		return Never
	}
	return time.Duration(days) * Day
}

// Days renders a protection window for humans
func Days(d time.Duration) string {
	if d == Never {
		return "never"
	}
	return strconv.FormatInt(int64(d/Day), 10) + "d"
}
