package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/claimexpiry/internal/model"
)

// MockAuditor implements Auditor
type MockAuditor struct {
	calls int32
	delay time.Duration
}

func (m *MockAuditor) Audit(ctx context.Context, owner uuid.UUID) model.OwnerAudit {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return model.OwnerAudit{Owner: owner, Status: model.OwnerProtected}
}

func owners(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestAuditProcessor_ProcessOwners(t *testing.T) {
	auditor := &MockAuditor{delay: time.Millisecond}
	processor := NewAuditProcessor(auditor, 4, nil)

	ids := owners(25)
	audits := processor.ProcessOwners(context.Background(), ids)

	if len(audits) != len(ids) {
		t.Fatalf("expected %d audits, got %d", len(ids), len(audits))
	}
	for i, a := range audits {
		if a.Owner != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], a.Owner)
		}
		if a.Status != model.OwnerProtected {
			t.Errorf("position %d: expected protected, got %s", i, a.Status)
		}
	}
	if n := atomic.LoadInt32(&auditor.calls); n != 25 {
		t.Errorf("expected 25 audits, got %d", n)
	}
}

func TestAuditProcessor_Empty(t *testing.T) {
	processor := NewAuditProcessor(&MockAuditor{}, 2, nil)
	if audits := processor.ProcessOwners(context.Background(), nil); len(audits) != 0 {
		t.Errorf("expected no audits, got %d", len(audits))
	}
}

func TestAuditProcessor_Cancelled(t *testing.T) {
	auditor := &MockAuditor{}
	processor := NewAuditProcessor(auditor, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ids := owners(3)
	audits := processor.ProcessOwners(ctx, ids)

	if len(audits) != 3 {
		t.Fatalf("expected 3 audits, got %d", len(audits))
	}
	for i, a := range audits {
		if a.Owner != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], a.Owner)
		}
		if a.Error == "" {
			t.Errorf("position %d: expected the cancellation to be reported", i)
		}
	}
	if n := atomic.LoadInt32(&auditor.calls); n != 0 {
		t.Errorf("expected no audits to run, got %d", n)
	}
}

func TestAuditJob_LimiterCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	drain(t, limiter, "audit")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	auditor := &MockAuditor{}
	job := &AuditJob{Index: 3, Owner: uuid.New(), Auditor: auditor, Limiter: limiter}
	res := job.Execute(ctx)

	if res.Error == nil {
		t.Error("expected the limiter wait to fail")
	}
	if res.Index != 3 || res.Audit.Error == "" {
		t.Errorf("unexpected result %+v", res)
	}
	if atomic.LoadInt32(&auditor.calls) != 0 {
		t.Error("expected the auditor not to run")
	}
}

func TestReadOwnersFromFile(t *testing.T) {
	a := uuid.MustParse("2f1e3f52-7a43-4c2c-9b7e-1f0c6f3e9a01")
	b := uuid.MustParse("8c5d1e90-03b4-4e7a-a1a2-5b8f2c7d6e02")

	content := "# suspects\n" + a.String() + "\n\n  " + b.String() + "  \n" + a.String() + "\n"
	path := filepath.Join(t.TempDir(), "owners.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := ReadOwnersFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Errorf("expected [%s %s], got %v", a, b, ids)
	}
}

func TestReadOwnersFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owners.txt")
	if err := os.WriteFile(path, []byte("not-a-uuid\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadOwnersFromFile(path); err == nil {
		t.Error("expected an error for an invalid owner")
	}
	if _, err := ReadOwnersFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestAuditProcessor_ProcessFile(t *testing.T) {
	ids := owners(3)
	content := ""
	for _, id := range ids {
		content += id.String() + "\n"
	}
	path := filepath.Join(t.TempDir(), "owners.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	audits, err := NewAuditProcessor(&MockAuditor{}, 2, nil).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audits) != 3 || audits[2].Owner != ids[2] {
		t.Errorf("expected audits in file order, got %v", audits)
	}

	if _, err := NewAuditProcessor(&MockAuditor{}, 2, nil).ProcessFile(context.Background(), path+".missing"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
