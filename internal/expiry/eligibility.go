package expiry

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/ppiankov/claimexpiry/internal/host"
	"github.com/ppiankov/claimexpiry/internal/model"
)

// ClaimLister enumerates the claims of one owner
type ClaimLister func(owner uuid.UUID) ([]model.Claim, error)

// ClaimVerdict is the outcome for one top-level claim
type ClaimVerdict struct {
	Claim      model.Claim
	Protection time.Duration
	Exempt     bool // Past its window but exempt in the claim's world
	Eligible   bool
}

// Verdict is the outcome of evaluating one owner
type Verdict struct {
	Owner    uuid.UUID
	Account  model.Account
	Status   model.OwnerStatus
	Inactive time.Duration
	Claims   []ClaimVerdict
}

// Eligible returns the claims due for expiration
func (v Verdict) Eligible() []model.Claim {
	var claims []model.Claim
	for _, c := range v.Claims {
		if c.Eligible {
			claims = append(claims, c.Claim)
		}
	}
	return claims
}

// Evaluator decides which of an owner's claims are due for expiration
type Evaluator struct {
	accounts    host.Accounts
	permissions host.Permissions
	clock       clock.Clock
	logger      Logger
}

// NewEvaluator creates an evaluator reading owner state from the host
func NewEvaluator(accounts host.Accounts, permissions host.Permissions, clk clock.Clock, logger Logger) *Evaluator {
	return &Evaluator{
		accounts:    accounts,
		permissions: permissions,
		clock:       clk,
		logger:      logger,
	}
}

// Exempt reports whether the owner is immune from expiration.
// The first matching condition wins.
func (e *Evaluator) Exempt(account model.Account, ex Exemption, world string) bool {
	if account.Online {
		return true
	}
	if meets(ex.ClaimBlocks, account.AccruedBlocks) {
		return true
	}
	if meets(ex.BonusClaimBlocks, account.BonusBlocks) {
		return true
	}
	for _, node := range ex.Permissions {
		if e.permissions.HasPermission(account.ID, node, world) {
			return true
		}
	}
	return false
}

// meets reports whether balance reaches an enabled threshold
func meets(threshold, balance int) bool {
	if threshold < 0 {
		return false
	}
	return threshold <= balance
}

// Evaluate runs the eligibility chain for owner. list is only called once
// the owner has been inactive longer than the shortest protection window.
func (e *Evaluator) Evaluate(owner uuid.UUID, s *Settings, list ClaimLister) (Verdict, error) {
	verdict := Verdict{Owner: owner, Status: model.OwnerUnknown}

	account, ok := e.accounts.Account(owner)
	if !ok {
		e.logger.Debugf("no account for claim owner %s", owner)
		return verdict, nil
	}
	verdict.Account = account

	if e.Exempt(account, s.Exemption, "") {
		verdict.Status = model.OwnerExempt
		return verdict, nil
	}

	now := e.clock.Now()
	lastSession := account.LastQualifyingSession(now)
	verdict.Inactive = now.Sub(lastSession)

	// Nothing can expire before the shortest window has passed.
	if verdict.Inactive <= s.Protection.Shortest() {
		verdict.Status = model.OwnerProtected
		return verdict, nil
	}

	e.logger.Debugf("%s was last active %s, claims may be eligible for expiration",
		owner, humanize.RelTime(lastSession, now, "ago", "from now"))

	claims, err := list(owner)
	if err != nil {
		return verdict, fmt.Errorf("list claims of %s: %w", owner, err)
	}

	verdict.Status = model.OwnerEvaluated
	for _, c := range claims {
		if !c.TopLevel() || c.Owner != owner {
			continue
		}

		protection := s.Protection.For(c.World).Lookup(c.Area())
		cv := ClaimVerdict{
			Claim:      c,
			Protection: protection,
			Eligible:   verdict.Inactive > protection,
		}
		if cv.Eligible && e.Exempt(account, s.ExemptionFor(c.World), c.World) {
			cv.Exempt = true
			cv.Eligible = false
			e.logger.Debugf("claim %d is past its window but %s is exempt in %s", c.ID, owner, c.World)
		}
		if cv.Eligible {
			e.logger.Debugf("claim %d has an area of %d and is eligible for expiration", c.ID, c.Area())
		}
		verdict.Claims = append(verdict.Claims, cv)
	}
	return verdict, nil
}
