package expiry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/claimexpiry/internal/host"
	"github.com/ppiankov/claimexpiry/internal/model"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// MockLogger records warnings
type MockLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *MockLogger) Debugf(string, ...interface{}) {}

func (l *MockLogger) Infof(string, ...interface{}) {}

func (l *MockLogger) Warningf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *MockLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

type laterTask struct {
	delay host.Ticks
	task  func()
}

// MockHost runs synchronized tasks inline and records delayed ones
type MockHost struct {
	mu       sync.Mutex
	disabled bool
	later    []laterTask
	syncRuns int
	done     chan struct{}
}

func NewMockHost() *MockHost {
	return &MockHost{done: make(chan struct{})}
}

func (h *MockHost) RunTask(task func()) error {
	h.mu.Lock()
	if h.disabled {
		h.mu.Unlock()
		return host.ErrShuttingDown
	}
	h.syncRuns++
	h.mu.Unlock()
	task()
	return nil
}

func (h *MockHost) RunTaskLaterAsync(delay host.Ticks, task func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disabled {
		return host.ErrShuttingDown
	}
	h.later = append(h.later, laterTask{delay: delay, task: task})
	return nil
}

func (h *MockHost) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.disabled
}

func (h *MockHost) Done() <-chan struct{} {
	return h.done
}

func (h *MockHost) Disable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.disabled {
		h.disabled = true
		close(h.done)
	}
}

// Pop removes and returns the oldest delayed task
func (h *MockHost) Pop() (laterTask, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.later) == 0 {
		return laterTask{}, false
	}
	t := h.later[0]
	h.later = h.later[1:]
	return t, true
}

func (h *MockHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.later)
}

// MockPermissions grants nodes per owner, ignoring world
type MockPermissions map[uuid.UUID][]string

func (p MockPermissions) HasPermission(owner uuid.UUID, node, world string) bool {
	for _, n := range p[owner] {
		if n == node {
			return true
		}
	}
	return false
}

// MockAccounts counts lookups
type MockAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]model.Account
	lookups  map[uuid.UUID]int
}

func NewMockAccounts(accounts ...model.Account) *MockAccounts {
	m := &MockAccounts{
		accounts: make(map[uuid.UUID]model.Account),
		lookups:  make(map[uuid.UUID]int),
	}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *MockAccounts) Account(id uuid.UUID) (model.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[id]++
	a, ok := m.accounts[id]
	return a, ok
}

func (m *MockAccounts) Lookups(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups[id]
}

// MockStore is a claim store with cascading delete
type MockStore struct {
	mu        sync.Mutex
	claims    []model.Claim
	deleted   []model.ClaimID
	panicking bool
}

func (s *MockStore) Claims() []model.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicking {
		panic("claim store unavailable")
	}
	return append([]model.Claim(nil), s.claims...)
}

func (s *MockStore) DeleteClaim(id model.ClaimID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	kept := s.claims[:0]
	for _, c := range s.claims {
		if c.ID == id || (c.Parent != nil && *c.Parent == id) {
			found = true
			s.deleted = append(s.deleted, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	s.claims = kept
	if !found {
		return fmt.Errorf("claim %d not found", id)
	}
	return nil
}

func (s *MockStore) Deleted() []model.ClaimID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ClaimID(nil), s.deleted...)
}

// MockConsole records commands
type MockConsole struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (c *MockConsole) Dispatch(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command)
	return c.err
}

func (c *MockConsole) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

func owner(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

// square returns a top-level claim whose area is side*side
func square(id model.ClaimID, o uuid.UUID, world string, side int) model.Claim {
	return model.Claim{
		ID:      id,
		Owner:   o,
		World:   world,
		Lesser:  model.Corner{X: 0, Y: 60, Z: 0},
		Greater: model.Corner{X: side - 1, Y: 80, Z: side - 1},
	}
}

func child(id, parent model.ClaimID, o uuid.UUID) model.Claim {
	c := square(id, o, "world", 5)
	c.Parent = &parent
	return c
}

func offline(o uuid.UUID, name string, away time.Duration) model.Account {
	return model.Account{ID: o, Name: name, LastPlayed: testNow.Add(-away)}
}

func defaultSettings() *Settings {
	return NewSettings(model.DefaultConfig().Expiration, &MockLogger{})
}
