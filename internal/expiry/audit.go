package expiry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/claimexpiry/internal/model"
)

// Auditor runs the eligibility chain over a fixed claim snapshot and
// reports what would expire. It deletes nothing.
type Auditor struct {
	evaluator *Evaluator
	settings  *Settings
	names     *Names
	owners    []uuid.UUID
	byOwner   map[uuid.UUID][]model.Claim
}

// NewAuditor indexes claims by owner. names may be nil.
func NewAuditor(evaluator *Evaluator, settings *Settings, names *Names, claims []model.Claim) *Auditor {
	byOwner := make(map[uuid.UUID][]model.Claim)
	for _, c := range claims {
		if c.TopLevel() {
			byOwner[c.Owner] = append(byOwner[c.Owner], c)
		}
	}

	return &Auditor{
		evaluator: evaluator,
		settings:  settings,
		names:     names,
		owners:    NewCandidateSet(claims, 0).owners,
		byOwner:   byOwner,
	}
}

// Owners returns every candidate owner in the snapshot
func (a *Auditor) Owners() []uuid.UUID {
	return append([]uuid.UUID(nil), a.owners...)
}

// Audit evaluates a single owner
func (a *Auditor) Audit(ctx context.Context, owner uuid.UUID) model.OwnerAudit {
	audit := model.OwnerAudit{Owner: owner, Status: model.OwnerUnknown}
	if a.names != nil {
		audit.Name = a.names.Name(owner)
	}

	list := func(owner uuid.UUID) ([]model.Claim, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return a.byOwner[owner], nil
	}

	verdict, err := a.evaluator.Evaluate(owner, a.settings, list)
	audit.Status = verdict.Status
	audit.Inactive = verdict.Inactive
	if err != nil {
		audit.Error = err.Error()
		return audit
	}

	for _, cv := range verdict.Claims {
		audit.Claims = append(audit.Claims, model.ClaimVerdict{
			Claim:      cv.Claim.ID,
			World:      cv.Claim.World,
			Area:       cv.Claim.Area(),
			Protection: cv.Protection,
			Never:      cv.Protection == Never,
			Exempt:     cv.Exempt,
			Eligible:   cv.Eligible,
		})
	}
	return audit
}

// BuildReport summarises owner audits together with the pacing the
// scheduler would use for a generation of the same size.
func BuildReport(source string, s *Settings, audits []model.OwnerAudit, now time.Time) *model.AuditReport {
	population := len(audits)
	delay := idleDelay
	if population > 0 {
		delay = s.Rate.Delay(population)
	}

	report := &model.AuditReport{
		Source:      source,
		GeneratedAt: now,
		Pacing: model.Pacing{
			RateType:           s.Rate.Type.String(),
			RateValue:          s.Rate.Value,
			Population:         population,
			DelayTicks:         int64(delay),
			GenerationDuration: s.Rate.GenerationTicks(population).Duration(),
		},
		Owners: audits,
	}

	sum := &report.Summary
	sum.Owners = population
	for _, a := range audits {
		switch a.Status {
		case model.OwnerExempt:
			sum.Exempt++
		case model.OwnerProtected:
			sum.Protected++
		case model.OwnerUnknown:
			sum.Unknown++
		}

		eligible := 0
		for _, c := range a.Claims {
			if c.Eligible {
				eligible++
			}
		}
		if eligible > 0 {
			sum.WithEligible++
			sum.EligibleClaims += eligible
		}
	}
	return report
}
