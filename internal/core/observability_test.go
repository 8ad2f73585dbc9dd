package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"inventorycore/pkg/domain"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "loan.open", true, 20*time.Millisecond)
	rec.Observe(ctx, "loan.open", true, 30*time.Millisecond)
	rec.Observe(ctx, "loan.open", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if got := snap.Results["loan.open"]["success"]; got != 2 {
		t.Fatalf("success count = %d, want 2", got)
	}
	if got := snap.Results["loan.open"]["error"]; got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
	if got := snap.DurationsMS["loan.open"]; got != 55 {
		t.Fatalf("durations = %v, want 55", got)
	}
	if rec.Name() == "" {
		t.Fatal("expected generated export name")
	}

	// Snapshots are copies, not views.
	snap.Results["loan.open"]["success"] = 99
	if got := rec.Snapshot().Results["loan.open"]["success"]; got != 2 {
		t.Fatalf("snapshot mutation leaked into recorder: %d", got)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)
	ctx := context.Background()

	rec.Observe(ctx, "loan.open", true, 12*time.Millisecond)
	rec.Observe(ctx, "loan.close", false, 3*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{"inventorycore_operations_total", "inventorycore_operation_duration_seconds"} {
		if !found[name] {
			t.Fatalf("metric family %s not registered (have %v)", name, found)
		}
	}
}

func TestServiceRecordsMetrics(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	f := newFixture(t)
	svc := NewService(f.store, WithMetricsRecorder(rec))
	ctx := context.Background()

	if _, err := svc.OpenLoan(ctx, admin(), OpenLoanInput{AssetID: f.asset.ID, Target: personTarget(f.person.ID)}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.OpenLoan(ctx, admin(), OpenLoanInput{AssetID: f.asset.ID, Target: personTarget(f.person.ID)}); !domain.IsConflict(err, domain.ConflictAssetAlreadyLoaned) {
		t.Fatalf("expected conflict, got %v", err)
	}

	snap := rec.Snapshot()
	if snap.Results["loan.open"]["success"] != 1 || snap.Results["loan.open"]["error"] != 1 {
		t.Fatalf("loan.open counts = %+v", snap.Results["loan.open"])
	}
}
