package memhost

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimexpiry/internal/model"
)

// State is an in-memory claim store, account registry, permission table
// and console. Safe for concurrent use.
type State struct {
	mu         sync.RWMutex
	claims     map[model.ClaimID]model.Claim
	accounts   map[uuid.UUID]model.Account
	grants     []model.Permission
	dispatched []string
}

// NewState builds a state from a world snapshot
func NewState(world model.World) *State {
	s := &State{
		claims:   make(map[model.ClaimID]model.Claim, len(world.Claims)),
		accounts: make(map[uuid.UUID]model.Account, len(world.Accounts)),
		grants:   append([]model.Permission(nil), world.Grants...),
	}
	for _, c := range world.Claims {
		s.claims[c.ID] = c
	}
	for _, a := range world.Accounts {
		s.accounts[a.ID] = a
	}
	return s
}

// LoadWorld reads a world snapshot from a YAML file
func LoadWorld(path string) (model.World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.World{}, fmt.Errorf("read world: %w", err)
	}

	var world model.World
	if err := yaml.Unmarshal(data, &world); err != nil {
		return model.World{}, fmt.Errorf("parse world %s: %w", path, err)
	}
	return world, nil
}

// SaveWorld writes a world snapshot as YAML
func SaveWorld(path string, world model.World) error {
	data, err := yaml.Marshal(world)
	if err != nil {
		return fmt.Errorf("marshal world: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write world: %w", err)
	}
	return nil
}

// Claims returns every claim ordered by id
func (s *State) Claims() []model.Claim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claims := make([]model.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		claims = append(claims, c)
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].ID < claims[j].ID })
	return claims
}

// DeleteClaim removes a claim and, recursively, its children
func (s *State) DeleteClaim(id model.ClaimID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[id]; !ok {
		return fmt.Errorf("claim %d not found", id)
	}
	s.deleteLocked(id)
	return nil
}

func (s *State) deleteLocked(id model.ClaimID) {
	delete(s.claims, id)
	for childID, c := range s.claims {
		if c.Parent != nil && *c.Parent == id {
			s.deleteLocked(childID)
		}
	}
}

// PutClaim inserts or replaces a claim
func (s *State) PutClaim(c model.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[c.ID] = c
}

// Account implements host.Accounts
func (s *State) Account(id uuid.UUID) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	return a, ok
}

// PutAccount inserts or replaces an account
func (s *State) PutAccount(a model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

// HasPermission implements host.Permissions. A grant without a world
// applies everywhere; a grant with a world only matches that world.
func (s *State) HasPermission(owner uuid.UUID, node, world string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.grants {
		if g.Owner != owner || g.Node != node {
			continue
		}
		if g.World == "" || g.World == world {
			return true
		}
	}
	return false
}

// Dispatch implements host.Console by recording the command
func (s *State) Dispatch(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched = append(s.dispatched, command)
	return nil
}

// Dispatched returns every command received so far, in order
func (s *State) Dispatched() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.dispatched...)
}

// World captures the current state as a snapshot
func (s *State) World() model.World {
	claims := s.Claims()

	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID.String() < accounts[j].ID.String()
	})

	return model.World{
		Claims:   claims,
		Accounts: accounts,
		Grants:   append([]model.Permission(nil), s.grants...),
	}
}
