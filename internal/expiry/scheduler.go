package expiry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	jujuerrors "github.com/juju/errors"

	"github.com/ppiankov/claimexpiry/internal/host"
	"github.com/ppiankov/claimexpiry/internal/metrics"
	"github.com/ppiankov/claimexpiry/internal/model"
)

// State is a step of the evaluation cycle
type State int

const (
	StateIdle State = iota
	StateRefreshing
	StateSelecting
	StateEvaluating
	StateExpiring
	StateScheduled
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateSelecting:
		return "selecting"
	case StateEvaluating:
		return "evaluating"
	case StateExpiring:
		return "expiring"
	case StateScheduled:
		return "scheduled"
	default:
		return "stopped"
	}
}

// Kinds of synchronized requests passed to SyncLimiter
const (
	SyncRefresh = "refresh"
	SyncClaims  = "claims"
)

// SyncLimiter paces requests made to the synchronized context
type SyncLimiter interface {
	Wait(ctx context.Context, kind string) error
}

// Progress describes the current generation
type Progress struct {
	Generation int
	Population int
	Remaining  int
	State      State
}

// Config defines the operation of a Scheduler.
type Config struct {
	Host      host.Scheduler
	Claims    host.ClaimStore
	Evaluator *Evaluator
	Executor  *Executor
	Settings  *Settings
	Logger    Logger

	// Optional.
	Limiter     SyncLimiter
	Rand        *rand.Rand
	Metrics     *metrics.Collector
	SyncTimeout time.Duration // Zero waits until the host stops
}

// Validate returns an error if config cannot drive a Scheduler.
func (config Config) Validate() error {
	if config.Host == nil {
		return jujuerrors.NotValidf("nil Host")
	}
	if config.Claims == nil {
		return jujuerrors.NotValidf("nil Claims")
	}
	if config.Evaluator == nil {
		return jujuerrors.NotValidf("nil Evaluator")
	}
	if config.Executor == nil {
		return jujuerrors.NotValidf("nil Executor")
	}
	if config.Settings == nil {
		return jujuerrors.NotValidf("nil Settings")
	}
	if config.Logger == nil {
		return jujuerrors.NotValidf("nil Logger")
	}
	if config.SyncTimeout < 0 {
		return jujuerrors.NotValidf("negative SyncTimeout")
	}
	return nil
}

// Scheduler paces the scan: each cycle checks exactly one owner and then
// arranges the next cycle on the host's unsynchronized context.
type Scheduler struct {
	config   Config
	settings atomic.Pointer[Settings]
	rng      *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the cycle; cycles never overlap.
	candidates *CandidateSet
	generation int

	mu       sync.Mutex
	started  bool
	stopped  bool
	progress Progress
}

// NewScheduler returns a Scheduler backed by config. Call Start to begin.
func NewScheduler(config Config) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, jujuerrors.Trace(err)
	}

	rng := config.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &Scheduler{
		config: config,
		rng:    rng,
	}
	s.settings.Store(config.Settings)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Start schedules the first cycle. Cancelling ctx stops the scan.
// A stopped scheduler cannot be started.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return jujuerrors.New("scheduler stopped")
	}
	if s.started {
		s.mu.Unlock()
		return jujuerrors.AlreadyExistsf("scheduler")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.config.Host.RunTaskLaterAsync(initialDelay, s.run); err != nil {
		s.setState(StateStopped)
		return fmt.Errorf("schedule first cycle: %w", err)
	}
	return nil
}

// Stop prevents further cycles. A cycle already running finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.cancel()
}

// Reload swaps in new settings for the following cycles
func (s *Scheduler) Reload(settings *Settings) {
	s.settings.Store(settings)
}

// Settings returns the settings in effect
func (s *Scheduler) Settings() *Settings {
	return s.settings.Load()
}

// Progress returns a snapshot of the current generation
func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// State returns the step the cycle is in
func (s *Scheduler) State() State {
	return s.Progress().State
}

// Generation returns the sequence number of the current candidate set
func (s *Scheduler) Generation() int {
	return s.Progress().Generation
}

func (s *Scheduler) run() {
	s.schedule(s.cycle())
}

// cycle checks one candidate and returns the delay before the next cycle
func (s *Scheduler) cycle() host.Ticks {
	settings := s.Settings()

	if s.candidates.Empty() {
		s.setState(StateRefreshing)
		s.refresh()
	}

	s.setState(StateSelecting)
	owner, ok := NewSelector(settings.Random, s.rng).Next(s.candidates)
	s.updateProgress()
	if ok {
		s.config.Metrics.CandidateTaken(s.candidates.Len())
		s.setState(StateEvaluating)
		s.check(owner, settings)
	}

	return s.nextDelay(settings)
}

func (s *Scheduler) nextDelay(settings *Settings) host.Ticks {
	if s.candidates.Empty() {
		return idleDelay
	}
	return settings.Rate.Delay(s.candidates.Population())
}

// schedule arranges the next cycle unless the host or caller has stopped us
func (s *Scheduler) schedule(delay host.Ticks) {
	s.setState(StateScheduled)
	if s.runContext().Err() != nil || !s.config.Host.Enabled() {
		s.setState(StateStopped)
		return
	}

	s.config.Metrics.CycleScheduled(delay.Duration().Seconds())
	s.setState(StateIdle)
	if err := s.config.Host.RunTaskLaterAsync(delay, s.run); err != nil {
		s.config.Logger.Debugf("not rescheduling evaluation: %v", err)
		s.setState(StateStopped)
	}
}

// refresh replaces an exhausted candidate set with a new generation
func (s *Scheduler) refresh() {
	s.config.Logger.Debugf("refreshing claim owner list")

	claims, err := callSync(s, SyncRefresh, func() ([]model.Claim, error) {
		return s.config.Claims.Claims(), nil
	})
	if err != nil {
		s.logSyncError("error fetching claim owners", err)
		s.config.Metrics.Failed("refresh")
		return
	}

	s.generation++
	s.candidates = NewCandidateSet(claims, s.generation)
	s.config.Logger.Debugf("fetched %d unique claim owners", s.candidates.Population())
	s.config.Metrics.GenerationStarted(s.candidates.Population())
}

// check evaluates owner and hands every eligible claim to the executor
func (s *Scheduler) check(owner uuid.UUID, settings *Settings) {
	s.config.Logger.Debugf("checking expiration for %s", owner)

	verdict, err := s.config.Evaluator.Evaluate(owner, settings, s.ownedClaims)
	if err != nil {
		s.logSyncError(fmt.Sprintf("error fetching claims for %s", owner), err)
		s.config.Metrics.Failed("claims")
		return
	}
	s.config.Metrics.OwnerEvaluated(string(verdict.Status))

	for _, claim := range verdict.Eligible() {
		s.setState(StateExpiring)
		s.expire(claim, verdict, settings)
	}
}

// ownedClaims fetches owner's top-level claims from the synchronized context
func (s *Scheduler) ownedClaims(owner uuid.UUID) ([]model.Claim, error) {
	return callSync(s, SyncClaims, func() ([]model.Claim, error) {
		var owned []model.Claim
		for _, c := range s.config.Claims.Claims() {
			if c.TopLevel() && c.Owner == owner {
				owned = append(owned, c)
			}
		}
		return owned, nil
	})
}

// expire queues the deletion of one claim on the synchronized context
func (s *Scheduler) expire(claim model.Claim, verdict Verdict, settings *Settings) {
	if !s.config.Host.Enabled() {
		return
	}

	ev := ClaimExpiringEvent{
		Claim:    claim,
		Owner:    verdict.Account,
		Inactive: verdict.Inactive,
	}
	templates := settings.Commands(claim.World)

	err := s.config.Host.RunTask(func() {
		s.config.Executor.Expire(ev, templates)
	})
	if err != nil {
		s.config.Logger.Debugf("not expiring claim %d: %v", claim.ID, err)
	}
}

func (s *Scheduler) logSyncError(msg string, err error) {
	if errors.Is(err, host.ErrShuttingDown) || errors.Is(err, context.Canceled) {
		s.config.Logger.Debugf("%s: %v", msg, err)
		return
	}
	s.config.Logger.Warningf("%s: %v", msg, err)
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.State = state
}

func (s *Scheduler) updateProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Generation = s.candidates.Generation()
	s.progress.Population = s.candidates.Population()
	s.progress.Remaining = s.candidates.Len()
}

// callSync runs fn on the synchronized context, honouring cancellation,
// the request limiter and the configured timeout.
func callSync[T any](s *Scheduler, kind string, fn func() (T, error)) (T, error) {
	var zero T
	ctx := s.runContext()
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if !s.config.Host.Enabled() {
		return zero, host.ErrShuttingDown
	}

	if s.config.Limiter != nil {
		if err := s.config.Limiter.Wait(ctx, kind); err != nil {
			return zero, fmt.Errorf("wait for %s slot: %w", kind, err)
		}
	}

	if s.config.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SyncTimeout)
		defer cancel()
	}
	return host.CallSync(ctx, s.config.Host, fn)
}
