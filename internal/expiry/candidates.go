package expiry

import (
	"github.com/google/uuid"
	"github.com/juju/collections/set"

	"github.com/ppiankov/claimexpiry/internal/model"
)

// CandidateSet holds the owners not yet checked in the current generation.
// It is owned by the scheduler's cycle and needs no locking.
type CandidateSet struct {
	owners     []uuid.UUID
	population int
	generation int
}

// NewCandidateSet projects a claim snapshot onto the owners of top-level,
// player-owned claims. Child claims are skipped; they are revisited when
// their parent expires.
func NewCandidateSet(claims []model.Claim, generation int) *CandidateSet {
	ids := set.NewStrings()
	for _, c := range claims {
		if !c.TopLevel() || c.Administrative() {
			continue
		}
		ids.Add(c.Owner.String())
	}

	owners := make([]uuid.UUID, 0, ids.Size())
	for _, id := range ids.SortedValues() {
		owners = append(owners, uuid.MustParse(id))
	}

	return &CandidateSet{
		owners:     owners,
		population: len(owners),
		generation: generation,
	}
}

// Len returns the number of owners left in the generation
func (c *CandidateSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.owners)
}

// Empty reports whether the generation is exhausted
func (c *CandidateSet) Empty() bool {
	return c.Len() == 0
}

// Population returns the generation size captured at refresh
func (c *CandidateSet) Population() int {
	if c == nil {
		return 0
	}
	return c.population
}

// Generation returns the refresh sequence number
func (c *CandidateSet) Generation() int {
	if c == nil {
		return 0
	}
	return c.generation
}

// take removes and returns the owner at index i
func (c *CandidateSet) take(i int) uuid.UUID {
	owner := c.owners[i]
	c.owners = append(c.owners[:i], c.owners[i+1:]...)
	return owner
}
