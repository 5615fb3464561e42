package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/claimexpiry/internal/model"
)

// Auditor evaluates one owner without changing anything
type Auditor interface {
	Audit(ctx context.Context, owner uuid.UUID) model.OwnerAudit
}

// AuditJob represents the audit of a single owner
type AuditJob struct {
	Index   int
	Owner   uuid.UUID
	Auditor Auditor
	Limiter *Limiter
}

// Execute executes the audit job
func (j *AuditJob) Execute(ctx context.Context) AuditResult {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, "audit"); err != nil {
			return AuditResult{
				Index: j.Index,
				Audit: model.OwnerAudit{Owner: j.Owner, Status: model.OwnerUnknown, Error: err.Error()},
				Error: err,
			}
		}
	}
	return AuditResult{
		Index: j.Index,
		Audit: j.Auditor.Audit(ctx, j.Owner),
	}
}

// AuditResult represents the result of an audit job
type AuditResult struct {
	Index int
	Audit model.OwnerAudit
	Error error
}

// AuditProcessor audits many owners concurrently
type AuditProcessor struct {
	auditor     Auditor
	concurrency int
	limiter     *Limiter
}

// NewAuditProcessor creates a new audit processor. limiter may be nil.
func NewAuditProcessor(auditor Auditor, concurrency int, limiter *Limiter) *AuditProcessor {
	return &AuditProcessor{
		auditor:     auditor,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// ProcessOwners audits owners and returns their audits in input order.
// Owners left unaudited after cancellation carry the context error.
func (b *AuditProcessor) ProcessOwners(ctx context.Context, owners []uuid.UUID) []model.OwnerAudit {
	if len(owners) == 0 {
		return []model.OwnerAudit{}
	}

	pool := NewPool[AuditResult](ctx, b.concurrency)
	pool.Start()

	for i, owner := range owners {
		job := &AuditJob{
			Index:   i,
			Owner:   owner,
			Auditor: b.auditor,
			Limiter: b.limiter,
		}
		if !pool.Submit(job) {
			break
		}
	}

	var results []AuditResult
	if ctx.Err() != nil {
		results = pool.Shutdown()
	} else {
		results = pool.Wait()
	}

	audits := make([]model.OwnerAudit, len(owners))
	done := make([]bool, len(owners))
	for _, r := range results {
		audits[r.Index] = r.Audit
		done[r.Index] = true
	}
	for i, owner := range owners {
		if done[i] {
			continue
		}
		msg := "not audited"
		if err := ctx.Err(); err != nil {
			msg = err.Error()
		}
		audits[i] = model.OwnerAudit{Owner: owner, Status: model.OwnerUnknown, Error: msg}
	}

	return audits
}

// ProcessFile reads owners from a file and audits them
func (b *AuditProcessor) ProcessFile(ctx context.Context, filePath string) ([]model.OwnerAudit, error) {
	owners, err := ReadOwnersFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read owners: %w", err)
	}

	return b.ProcessOwners(ctx, owners), nil
}

// ReadOwnersFromFile reads owner UUIDs from a file (one per line)
func ReadOwnersFromFile(filePath string) ([]uuid.UUID, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var owners []uuid.UUID
	seen := make(map[uuid.UUID]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		owner, err := uuid.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if !seen[owner] {
			seen[owner] = true
			owners = append(owners, owner)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return owners, nil
}
