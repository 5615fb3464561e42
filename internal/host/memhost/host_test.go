package memhost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/ppiankov/claimexpiry/internal/host"
	"github.com/ppiankov/claimexpiry/internal/model"
)

const tick = 50 * time.Millisecond

// MockLogger records warnings
type MockLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *MockLogger) Debugf(string, ...interface{}) {}

func (l *MockLogger) Warningf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *MockLogger) Warnings() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings)
}

func newTestHost(t *testing.T, world model.World) (*Host, *testclock.Clock, *MockLogger) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	logger := &MockLogger{}
	h, err := New(Config{
		State:        NewState(world),
		Clock:        clk,
		Logger:       logger,
		TickDuration: tick,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		h.Kill()
		_ = h.Wait()
	})
	return h, clk, logger
}

func advance(t *testing.T, clk *testclock.Clock) {
	t.Helper()
	if err := clk.WaitAdvance(tick, time.Second, 1); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestConfig_Validate(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no state", Config{Clock: clk, Logger: &MockLogger{}, TickDuration: tick}},
		{"no clock", Config{State: NewState(model.World{}), Logger: &MockLogger{}, TickDuration: tick}},
		{"no logger", Config{State: NewState(model.World{}), Clock: clk, TickDuration: tick}},
		{"no tick", Config{State: NewState(model.World{}), Clock: clk, Logger: &MockLogger{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHost_RunsSyncTasksInOrder(t *testing.T) {
	h, clk, _ := newTestHost(t, model.World{})

	var order []int
	done := make(chan struct{})
	for i := 1; i <= 3; i++ {
		if err := h.RunTask(func() {
			order = append(order, i)
			if i == 3 {
				close(done)
			}
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	advance(t, clk)
	waitFor(t, done)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", order)
	}
}

func TestHost_DelayedTaskFiresOnDueTick(t *testing.T) {
	h, clk, _ := newTestHost(t, model.World{})

	fired := make(chan struct{})
	var firedAt host.Ticks
	if err := h.RunTaskLaterAsync(3, func() {
		firedAt = h.Tick()
		close(fired)
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		advance(t, clk)
	}
	waitFor(t, fired)

	if firedAt != 3 {
		t.Errorf("expected the task to fire at tick 3, got %d", firedAt)
	}
}

func TestHost_PanicDoesNotStopTheLoop(t *testing.T) {
	h, clk, logger := newTestHost(t, model.World{})

	done := make(chan struct{})
	_ = h.RunTask(func() { panic("boom") })
	_ = h.RunTask(func() { close(done) })

	advance(t, clk)
	waitFor(t, done)

	if logger.Warnings() != 1 {
		t.Errorf("expected the panic to be logged, got %d warnings", logger.Warnings())
	}
}

func TestHost_CallSync(t *testing.T) {
	world := model.World{Claims: []model.Claim{{ID: 1}, {ID: 2}}}
	h, clk, _ := newTestHost(t, world)

	type result struct {
		n   int
		err error
	}
	out := make(chan result, 1)
	go func() {
		n, err := host.CallSync(context.Background(), h, func() (int, error) {
			return len(h.Claims()), nil
		})
		out <- result{n, err}
	}()

	// Wait until the request is queued before stepping.
	deadline := time.Now().Add(time.Second)
	for {
		h.mu.Lock()
		queued := len(h.queue)
		h.mu.Unlock()
		if queued > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("request was never queued")
		}
		time.Sleep(time.Millisecond)
	}
	advance(t, clk)

	select {
	case r := <-out:
		if r.err != nil || r.n != 2 {
			t.Errorf("expected 2 claims, got %d (%v)", r.n, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestHost_KillFailsPendingCalls(t *testing.T) {
	h, _, _ := newTestHost(t, model.World{})

	f, err := host.Submit(h, func() (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.Kill()
	if err := h.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.Get(context.Background(), h.Done()); !errors.Is(err, host.ErrShuttingDown) {
		t.Errorf("expected ErrShuttingDown, got %v", err)
	}
	if h.Enabled() {
		t.Error("expected the host to be disabled")
	}
	if err := h.RunTask(func() {}); !errors.Is(err, host.ErrShuttingDown) {
		t.Errorf("expected ErrShuttingDown, got %v", err)
	}
	if err := h.RunTaskLaterAsync(1, func() {}); !errors.Is(err, host.ErrShuttingDown) {
		t.Errorf("expected ErrShuttingDown, got %v", err)
	}
}
