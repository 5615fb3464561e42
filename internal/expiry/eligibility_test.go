package expiry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"

	"github.com/ppiankov/claimexpiry/internal/model"
)

func newTestEvaluator(accounts *MockAccounts, perms MockPermissions) *Evaluator {
	return NewEvaluator(accounts, perms, testclock.NewClock(testNow), &MockLogger{})
}

// listOf returns a lister over claims and counts its calls
func listOf(calls *int, claims ...model.Claim) ClaimLister {
	return func(uuid.UUID) ([]model.Claim, error) {
		*calls++
		return claims, nil
	}
}

func TestEvaluator_Exempt(t *testing.T) {
	ex := Exemption{ClaimBlocks: 500, BonusClaimBlocks: 100, Permissions: []string{"claimexpiry.persist"}}

	tests := []struct {
		name    string
		account model.Account
		perms   MockPermissions
		ex      Exemption
		want    bool
	}{
		{"online", model.Account{ID: owner(1), Online: true}, nil, ex, true},
		{"accrued at threshold", model.Account{ID: owner(1), AccruedBlocks: 500}, nil, ex, true},
		{"accrued below threshold", model.Account{ID: owner(1), AccruedBlocks: 499}, nil, ex, false},
		{"bonus at threshold", model.Account{ID: owner(1), BonusBlocks: 100}, nil, ex, true},
		{"permission", model.Account{ID: owner(1)}, MockPermissions{owner(1): {"claimexpiry.persist"}}, ex, true},
		{"other permission", model.Account{ID: owner(1)}, MockPermissions{owner(1): {"other"}}, ex, false},
		{"disabled thresholds", model.Account{ID: owner(1), AccruedBlocks: 1 << 20, BonusBlocks: 1 << 20}, nil,
			Exemption{ClaimBlocks: -1, BonusClaimBlocks: -1}, false},
		{"zero threshold exempts everyone", model.Account{ID: owner(1)}, nil, Exemption{ClaimBlocks: 0, BonusClaimBlocks: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator(NewMockAccounts(), tt.perms)
			if got := e.Exempt(tt.account, tt.ex, ""); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEvaluator_UnknownOwner(t *testing.T) {
	e := newTestEvaluator(NewMockAccounts(), nil)
	calls := 0

	v, err := e.Evaluate(owner(1), defaultSettings(), listOf(&calls, square(1, owner(1), "world", 100)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != model.OwnerUnknown {
		t.Errorf("expected unknown, got %s", v.Status)
	}
	if calls != 0 {
		t.Errorf("expected claims not to be listed, got %d calls", calls)
	}
}

func TestEvaluator_OnlineOwnerIsExempt(t *testing.T) {
	acct := offline(owner(1), "alice", 400*Day)
	acct.Online = true
	e := newTestEvaluator(NewMockAccounts(acct), nil)
	calls := 0

	v, _ := e.Evaluate(owner(1), defaultSettings(), listOf(&calls, square(1, owner(1), "world", 100)))
	if v.Status != model.OwnerExempt {
		t.Errorf("expected exempt, got %s", v.Status)
	}
	if len(v.Eligible()) != 0 || calls != 0 {
		t.Error("expected nothing to be eligible for an online owner")
	}
}

func TestEvaluator_FastPathSkipsListing(t *testing.T) {
	// Default tables: shortest positive window is 60 days.
	tests := []struct {
		name   string
		away   time.Duration
		status model.OwnerStatus
		calls  int
	}{
		{"recent", 10 * Day, model.OwnerProtected, 0},
		{"exactly shortest", 60 * Day, model.OwnerProtected, 0},
		{"past shortest", 60*Day + time.Second, model.OwnerEvaluated, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEvaluator(NewMockAccounts(offline(owner(1), "alice", tt.away)), nil)
			calls := 0
			v, err := e.Evaluate(owner(1), defaultSettings(), listOf(&calls, square(1, owner(1), "world", 100)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Status != tt.status {
				t.Errorf("expected %s, got %s", tt.status, v.Status)
			}
			if calls != tt.calls {
				t.Errorf("expected %d list calls, got %d", tt.calls, calls)
			}
		})
	}
}

func TestEvaluator_ClaimEligibility(t *testing.T) {
	// 75 days away against 0:0, 1000:60, 10000:90, 250000:never
	e := newTestEvaluator(NewMockAccounts(offline(owner(1), "alice", 75*Day)), nil)
	claims := []model.Claim{
		square(1, owner(1), "world", 20),  // 400 blocks, 0 days
		square(2, owner(1), "world", 71),  // 5041 blocks, 60 days
		square(3, owner(1), "world", 200), // 40000 blocks, 90 days
		square(4, owner(1), "world", 600), // 360000 blocks, never
		square(5, owner(2), "world", 71),  // someone else's
		child(6, 2, owner(1)),             // not top-level
	}
	calls := 0

	v, err := e.Evaluate(owner(1), defaultSettings(), listOf(&calls, claims...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Claims) != 4 {
		t.Fatalf("expected 4 claim verdicts, got %d", len(v.Claims))
	}

	eligible := v.Eligible()
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible claims, got %d", len(eligible))
	}
	if eligible[0].ID != 1 || eligible[1].ID != 2 {
		t.Errorf("expected claims 1 and 2, got %d and %d", eligible[0].ID, eligible[1].ID)
	}
	if v.Claims[3].Protection != Never {
		t.Errorf("expected the largest claim to never expire, got %v", v.Claims[3].Protection)
	}
	if v.Inactive != 75*Day {
		t.Errorf("expected 75 days inactive, got %v", v.Inactive)
	}
}

func TestEvaluator_WorldOverride(t *testing.T) {
	cfg := model.DefaultConfig().Expiration
	cfg.Worlds = map[string]model.WorldConfig{
		"Resource": {DaysPerArea: map[string]interface{}{"0": 7}},
	}
	s := NewSettings(cfg, &MockLogger{})

	e := newTestEvaluator(NewMockAccounts(offline(owner(1), "alice", 10*Day)), nil)
	calls := 0
	v, err := e.Evaluate(owner(1), s, listOf(&calls,
		square(1, owner(1), "resource", 71),
		square(2, owner(1), "world", 71),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eligible := v.Eligible()
	if len(eligible) != 1 || eligible[0].ID != 1 {
		t.Errorf("expected only the resource world claim to expire, got %v", eligible)
	}
}

func TestEvaluator_ListError(t *testing.T) {
	e := newTestEvaluator(NewMockAccounts(offline(owner(1), "alice", 100*Day)), nil)
	boom := errors.New("boom")

	_, err := e.Evaluate(owner(1), defaultSettings(), func(uuid.UUID) ([]model.Claim, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped list error, got %v", err)
	}
}

func TestEvaluator_WorldBypassOverride(t *testing.T) {
	threshold := 100
	cfg := model.DefaultConfig().Expiration
	cfg.Worlds = map[string]model.WorldConfig{
		"Nether": {Bypass: &model.WorldBypassConfig{ClaimBlocks: &threshold}},
	}
	settings := NewSettings(cfg, &MockLogger{})

	acct := offline(owner(1), "alice", 400*Day)
	acct.AccruedBlocks = 200
	e := newTestEvaluator(NewMockAccounts(acct), nil)
	calls := 0

	v, err := e.Evaluate(owner(1), settings, listOf(&calls,
		square(1, owner(1), "world", 71),
		square(2, owner(1), "nether", 71),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != model.OwnerEvaluated {
		t.Fatalf("expected evaluated, got %s", v.Status)
	}

	if !v.Claims[0].Eligible || v.Claims[0].Exempt {
		t.Errorf("expected the overworld claim to be eligible, got %+v", v.Claims[0])
	}
	if v.Claims[1].Eligible || !v.Claims[1].Exempt {
		t.Errorf("expected the nether claim to be exempt, got %+v", v.Claims[1])
	}
	if got := v.Eligible(); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("expected only claim 1 to be eligible, got %v", got)
	}
}
