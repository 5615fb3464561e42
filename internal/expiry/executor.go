package expiry

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/claimexpiry/internal/host"
	"github.com/ppiankov/claimexpiry/internal/metrics"
	"github.com/ppiankov/claimexpiry/internal/model"
)

// UnknownWorld is substituted for claims with no world
const UnknownWorld = "unknown world"

// Decision is a hook's answer to a pending expiration
type Decision int

const (
	// Continue lets the expiration proceed
	Continue Decision = iota
	// Veto cancels the expiration of this claim
	Veto
)

// ClaimExpiringEvent is delivered to hooks before a claim is deleted
type ClaimExpiringEvent struct {
	Claim    model.Claim
	Owner    model.Account
	Inactive time.Duration
}

// Hook observes claims about to expire and may veto their deletion.
// Hooks run on the synchronized context.
type Hook interface {
	ClaimExpiring(ev ClaimExpiringEvent) Decision
}

// HookFunc adapts a function to Hook
type HookFunc func(ev ClaimExpiringEvent) Decision

// ClaimExpiring implements Hook.
func (f HookFunc) ClaimExpiring(ev ClaimExpiringEvent) Decision {
	return f(ev)
}

// Outcome is the result of processing one eligible claim
type Outcome int

const (
	OutcomeExpired Outcome = iota
	OutcomeVetoed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExpired:
		return "expired"
	case OutcomeVetoed:
		return "vetoed"
	default:
		return "failed"
	}
}

// Executor deletes expired claims and runs their follow-up commands
type Executor struct {
	store   host.ClaimStore
	console host.Console
	names   *Names
	logger  Logger
	metrics *metrics.Collector

	mu    sync.RWMutex
	hooks []Hook
}

// NewExecutor creates an executor. m may be nil.
func NewExecutor(store host.ClaimStore, console host.Console, names *Names, logger Logger, m *metrics.Collector) *Executor {
	return &Executor{
		store:   store,
		console: console,
		names:   names,
		logger:  logger,
		metrics: m,
	}
}

// AddHook registers a hook. Hooks are consulted in registration order.
func (e *Executor) AddHook(h Hook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, h)
}

// Expire processes one eligible claim. It must run on the synchronized context.
func (e *Executor) Expire(ev ClaimExpiringEvent, templates []string) Outcome {
	e.mu.RLock()
	hooks := e.hooks
	e.mu.RUnlock()

	for _, h := range hooks {
		if h.ClaimExpiring(ev) == Veto {
			e.logger.Debugf("expiration of claim %d was vetoed", ev.Claim.ID)
			e.metrics.ExpirationVetoed()
			return OutcomeVetoed
		}
	}

	// Render before deleting; names may be unavailable afterwards.
	commands := RenderCommands(templates, ev.Claim, e.names.Name(ev.Claim.Owner))

	if err := e.store.DeleteClaim(ev.Claim.ID); err != nil {
		e.logger.Warningf("failed to delete expired claim %d: %v", ev.Claim.ID, err)
		e.metrics.Failed("delete")
		return OutcomeFailed
	}
	e.logger.Infof("claim %d by %s has expired", ev.Claim.ID, ev.Claim.Owner)
	e.metrics.ClaimExpired(ev.Claim.World)

	for _, command := range commands {
		if err := e.console.Dispatch(command); err != nil {
			e.logger.Warningf("command %q for claim %d failed: %v", command, ev.Claim.ID, err)
			e.metrics.Failed("command")
		}
	}
	return OutcomeExpired
}

// RenderCommands substitutes claim placeholders into every template
func RenderCommands(templates []string, claim model.Claim, ownerName string) []string {
	if len(templates) == 0 {
		return nil
	}

	world := claim.World
	if world == "" {
		world = UnknownWorld
	}

	// Suffixed tokens come first so that $locX does not consume $locXMax.
	r := strings.NewReplacer(
		"$locXMax", strconv.Itoa(claim.Greater.X),
		"$locYMax", strconv.Itoa(claim.Greater.Y),
		"$locZMax", strconv.Itoa(claim.Greater.Z),
		"$locX", strconv.Itoa(claim.Lesser.X),
		"$locY", strconv.Itoa(claim.Lesser.Y),
		"$locZ", strconv.Itoa(claim.Lesser.Z),
		"$claimId", strconv.FormatInt(int64(claim.ID), 10),
		"$area", strconv.Itoa(claim.Area()),
		"$width", strconv.Itoa(claim.Width()),
		"$depth", strconv.Itoa(claim.Depth()),
		"$ownerId", claim.Owner.String(),
		"$ownerName", ownerName,
		"$world", world,
	)

	commands := make([]string, 0, len(templates))
	for _, t := range templates {
		commands = append(commands, r.Replace(t))
	}
	return commands
}
