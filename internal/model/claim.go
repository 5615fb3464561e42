package model

import "github.com/google/uuid"

// ClaimID identifies a claim in the claim store
type ClaimID int64

// Corner is a block position bounding a claim
type Corner struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Claim represents a bounded region of owned territory
type Claim struct {
	ID      ClaimID   `json:"id" yaml:"id"`
	Owner   uuid.UUID `json:"owner" yaml:"owner"`                       // uuid.Nil for administrative claims
	Parent  *ClaimID  `json:"parent,omitempty" yaml:"parent,omitempty"` // nil for top-level claims
	World   string    `json:"world" yaml:"world"`
	Lesser  Corner    `json:"lesser" yaml:"lesser"`   // Minimum boundary corner
	Greater Corner    `json:"greater" yaml:"greater"` // Maximum boundary corner
}

// TopLevel reports whether the claim has no parent
func (c Claim) TopLevel() bool {
	return c.Parent == nil
}

// Administrative reports whether the claim has no owning account
func (c Claim) Administrative() bool {
	return c.Owner == uuid.Nil
}

// Width is the inclusive X extent of the claim
func (c Claim) Width() int {
	return extent(c.Lesser.X, c.Greater.X)
}

// Depth is the inclusive Z extent of the claim
func (c Claim) Depth() int {
	return extent(c.Lesser.Z, c.Greater.Z)
}

// Area is the surface covered by the claim
func (c Claim) Area() int {
	return c.Width() * c.Depth()
}

func extent(a, b int) int {
	if b < a {
		a, b = b, a
	}
	return b - a + 1
}
