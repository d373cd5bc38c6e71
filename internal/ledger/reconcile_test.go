package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/crucial707/itam/internal/models"
)

func TestReconcile_ReportAndRepair(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.assets.put("A1", models.AssetAssigned)    // no active assignment
	f.assets.put("A2", models.AssetAvailable)   // one active assignment
	f.assets.put("A3", models.AssetMaintenance) // active assignment, report only
	f.assets.put("A4", models.AssetAvailable)   // consistent
	f.assignments.forceActive("x2", "A2")
	f.assignments.forceActive("x3", "A3")
	f.assignments.forceActive("x9", "GONE")

	rep, err := f.svc.Reconcile(ctx, false)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rep.Assets != 4 || len(rep.Violations) != 4 || rep.Repaired != 0 {
		t.Fatalf("report: %+v", rep)
	}
	if f.assets.status("A1") != models.AssetAssigned {
		t.Error("report-only pass changed state")
	}

	rep, err = f.svc.Reconcile(ctx, true)
	if err != nil {
		t.Fatalf("Reconcile repair: %v", err)
	}
	if rep.Repaired != 2 {
		t.Errorf("repaired %d, want 2", rep.Repaired)
	}
	if got := f.assets.status("A1"); got != models.AssetAvailable {
		t.Errorf("A1 %q, want available", got)
	}
	if got := f.assets.status("A2"); got != models.AssetAssigned {
		t.Errorf("A2 %q, want assigned", got)
	}
	if got := f.assets.status("A3"); got != models.AssetMaintenance {
		t.Errorf("A3 %q, maintenance must never be overwritten", got)
	}

	rep, _ = f.svc.Reconcile(ctx, false)
	if len(rep.Violations) != 2 {
		t.Errorf("remaining violations: %+v", rep.Violations)
	}
}

func TestReconcile_MultipleActiveNotRepaired(t *testing.T) {
	f := newFixture()
	f.assets.put("A1", models.AssetAssigned)
	f.assignments.forceActive("x1", "A1")
	f.assignments.forceActive("x2", "A1")

	rep, err := f.svc.Reconcile(context.Background(), true)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(rep.Violations) != 1 || rep.Violations[0].Problem != "multiple active assignments" || rep.Repaired != 0 {
		t.Errorf("report: %+v", rep)
	}
}

func TestReconcile_DefersRecentlyReservedAsset(t *testing.T) {
	f := newFixture()
	f.assets.put("A1", models.AssetAssigned)
	f.assets.byID["A1"].UpdatedAt = time.Now().Add(-5 * time.Second)

	rep, err := f.svc.Reconcile(context.Background(), true)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rep.Repaired != 0 || len(rep.Violations) != 1 || rep.Violations[0].Repaired {
		t.Errorf("report: %+v", rep)
	}
	if got := f.assets.status("A1"); got != models.AssetAssigned {
		t.Errorf("A1 %q, a reservation in flight must not be released", got)
	}
}
