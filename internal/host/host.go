// Package host declares the collaborators the expiration engine consumes.
//
// A host owns two execution contexts. The synchronized context is mutually
// exclusive with the host's simulation step and is the only place claim or
// world state may change. The unsynchronized context runs concurrently with
// the simulation and may only read snapshots obtained through CallSync.
package host

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/claimexpiry/internal/model"
)

// Ticks counts fixed-frequency simulation steps
type Ticks int64

const (
	// TicksPerSecond is the host simulation frequency
	TicksPerSecond Ticks = 20
	// TicksPerHour is the number of steps in one hour
	TicksPerHour = TicksPerSecond * 60 * 60
)

// Duration converts ticks to wall time at the nominal frequency
func (t Ticks) Duration() time.Duration {
	return time.Duration(t) * time.Second / time.Duration(TicksPerSecond)
}

// ErrShuttingDown is returned when the host stops accepting work
var ErrShuttingDown = errors.New("host is shutting down")

// Scheduler submits work to the host's execution contexts
type Scheduler interface {
	// RunTask queues task on the synchronized context.
	RunTask(task func()) error
	// RunTaskLaterAsync runs task on the unsynchronized context after delay ticks.
	RunTaskLaterAsync(delay Ticks, task func()) error
	// Enabled reports whether the host still accepts work.
	Enabled() bool
	// Done is closed once the host begins shutting down.
	Done() <-chan struct{}
}

// ClaimStore is the claim storage engine. Both methods must only be
// called from the synchronized context.
type ClaimStore interface {
	Claims() []model.Claim
	// DeleteClaim removes the claim and all of its children.
	DeleteClaim(id model.ClaimID) error
}

// Accounts resolves owner records. Safe for concurrent use.
type Accounts interface {
	Account(id uuid.UUID) (model.Account, bool)
}

// Permissions answers permission checks. Safe for concurrent use.
type Permissions interface {
	HasPermission(owner uuid.UUID, node, world string) bool
}

// Console dispatches commands with administrative privilege
type Console interface {
	Dispatch(command string) error
}
