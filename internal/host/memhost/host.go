// Package memhost is an in-memory host that simulates a tick-driven
// server. Each tick drains the synchronized queue serially on the host
// goroutine and releases delayed asynchronous tasks onto their own
// goroutines.
package memhost

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"

	"github.com/ppiankov/claimexpiry/internal/host"
)

// Logger represents the methods used by the host to log information.
type Logger interface {
	Debugf(string, ...interface{})
	Warningf(string, ...interface{})
}

// Config defines the operation of a Host.
type Config struct {
	State        *State
	Clock        clock.Clock
	Logger       Logger
	TickDuration time.Duration
}

// Validate returns an error if config cannot drive a Host.
func (config Config) Validate() error {
	if config.State == nil {
		return errors.NotValidf("nil State")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.TickDuration <= 0 {
		return errors.NotValidf("non-positive TickDuration")
	}
	return nil
}

type delayedTask struct {
	due  host.Ticks
	task func()
}

// Host runs a simulated tick loop over a State.
type Host struct {
	*State

	catacomb catacomb.Catacomb
	config   Config

	mu      sync.Mutex
	tick    host.Ticks
	queue   []func()
	delayed []delayedTask

	enabled  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	async    sync.WaitGroup
}

// New starts a Host backed by config.
func New(config Config) (*Host, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	h := &Host{
		State:  config.State,
		config: config,
		done:   make(chan struct{}),
	}
	h.enabled.Store(true)

	err := catacomb.Invoke(catacomb.Plan{
		Site: &h.catacomb,
		Work: h.loop,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return h, nil
}

// Kill is defined on worker.Worker.
func (h *Host) Kill() {
	h.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (h *Host) Wait() error {
	return h.catacomb.Wait()
}

// Tick returns the number of completed simulation steps.
func (h *Host) Tick() host.Ticks {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tick
}

// RunTask implements host.Scheduler.
func (h *Host) RunTask(task func()) error {
	if !h.Enabled() {
		return host.ErrShuttingDown
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, task)
	return nil
}

// RunTaskLaterAsync implements host.Scheduler.
func (h *Host) RunTaskLaterAsync(delay host.Ticks, task func()) error {
	if !h.Enabled() {
		return host.ErrShuttingDown
	}
	if delay < 1 {
		delay = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delayed = append(h.delayed, delayedTask{due: h.tick + delay, task: task})
	return nil
}

// Enabled implements host.Scheduler.
func (h *Host) Enabled() bool {
	return h.enabled.Load()
}

// Done implements host.Scheduler.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

func (h *Host) loop() error {
	defer h.shutdown()

	timer := h.config.Clock.NewTimer(h.config.TickDuration)
	defer timer.Stop()

	for {
		select {
		case <-h.catacomb.Dying():
			return h.catacomb.ErrDying()
		case <-timer.Chan():
			h.step()
			timer.Reset(h.config.TickDuration)
		}
	}
}

// step advances one tick. Synchronized tasks run here, one after another,
// so nothing else observes state while they mutate it.
func (h *Host) step() {
	h.mu.Lock()
	h.tick++
	now := h.tick
	queue := h.queue
	h.queue = nil

	var due []func()
	pending := h.delayed[:0]
	for _, d := range h.delayed {
		if d.due <= now {
			due = append(due, d.task)
		} else {
			pending = append(pending, d)
		}
	}
	h.delayed = pending
	h.mu.Unlock()

	for _, task := range queue {
		h.runSync(now, task)
	}

	for _, task := range due {
		h.async.Add(1)
		go func(task func()) {
			defer h.async.Done()
			task()
		}(task)
	}
}

func (h *Host) runSync(tick host.Ticks, task func()) {
	defer func() {
		if r := recover(); r != nil {
			h.config.Logger.Warningf("synchronized task panicked at tick %d: %v", tick, r)
		}
	}()
	task()
}

func (h *Host) shutdown() {
	h.enabled.Store(false)
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	dropped := len(h.queue) + len(h.delayed)
	h.queue = nil
	h.delayed = nil
	h.mu.Unlock()

	if dropped > 0 {
		h.config.Logger.Debugf("dropped %d pending tasks on shutdown", dropped)
	}
	h.async.Wait()
}
