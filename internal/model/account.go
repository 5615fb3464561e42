package model

import (
	"time"

	"github.com/google/uuid"
)

// Account is the per-owner record kept by the host
type Account struct {
	ID            uuid.UUID `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Online        bool      `json:"online" yaml:"online"`
	LastPlayed    time.Time `json:"last_played" yaml:"last_played"`
	AccruedBlocks int       `json:"accrued_blocks" yaml:"accrued_blocks"` // Claim blocks earned through play
	BonusBlocks   int       `json:"bonus_blocks" yaml:"bonus_blocks"`     // Claim blocks granted by staff or purchase
}

// LastQualifyingSession returns the instant the owner was last considered active.
// An online owner is active now.
func (a Account) LastQualifyingSession(now time.Time) time.Time {
	if a.Online {
		return now
	}
	return a.LastPlayed
}
