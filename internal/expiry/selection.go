package expiry

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// Selector picks the next candidate and removes it from the set
type Selector interface {
	Next(c *CandidateSet) (uuid.UUID, bool)
}

// NewSelector returns Random when random is set, Sequential otherwise
func NewSelector(random bool, rng *rand.Rand) Selector {
	if random {
		return Random{rng: rng}
	}
	return Sequential{}
}

// Sequential walks the candidate set in order
type Sequential struct{}

// Next implements Selector.
func (Sequential) Next(c *CandidateSet) (uuid.UUID, bool) {
	if c.Empty() {
		return uuid.Nil, false
	}
	return c.take(0), true
}

// Random draws an index uniformly and steps towards it from the first
// candidate. The walk starts counting at one, so draws of 0 and 1 both
// land on the first candidate and the last candidate is only reachable
// when it is also the first.
type Random struct {
	rng *rand.Rand
}

// Next implements Selector.
func (r Random) Next(c *CandidateSet) (uuid.UUID, bool) {
	n := c.Len()
	if n == 0 {
		return uuid.Nil, false
	}

	index := r.rng.IntN(n)
	pos := 0
	for i := 1; i < index && pos+1 < n; i++ {
		pos++
	}
	return c.take(pos), true
}
