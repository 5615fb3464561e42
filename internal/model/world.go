package model

import "github.com/google/uuid"

// World is a serialisable snapshot of host state.
// The simulated host loads one from YAML.
type World struct {
	Claims   []Claim      `json:"claims" yaml:"claims"`
	Accounts []Account    `json:"accounts" yaml:"accounts"`
	Grants   []Permission `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// Permission grants a node to an owner, optionally limited to one world
type Permission struct {
	Owner uuid.UUID `json:"owner" yaml:"owner"`
	Node  string    `json:"node" yaml:"node"`
	World string    `json:"world,omitempty" yaml:"world,omitempty"` // Empty applies everywhere
}
