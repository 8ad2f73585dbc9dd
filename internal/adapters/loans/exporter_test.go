package loans

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"inventorycore/internal/core"
	"inventorycore/internal/infra/blob"
	"inventorycore/pkg/domain"
)

func adminActor() domain.ActorContext {
	return domain.ActorContext{Subject: "it-admin", Role: domain.RoleAdmin}
}

func TestWorkerRendersAndStoresArtifacts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	loan, err := env.svc.OpenLoan(ctx, adminActor(), core.OpenLoanInput{
		AssetID: env.asset.ID,
		Target:  domain.TargetRef{Kind: domain.TargetPerson, ID: env.person.ID},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	store := blob.NewMemory()
	audit := &MemoryAuditLog{}
	worker := NewWorker(env.svc, store, audit)
	worker.Start()
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = worker.Stop(stopCtx)
	})

	record, err := worker.EnqueueExport(ctx, ExportInput{Actor: adminActor(), Reason: "audit"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	final := waitForExport(t, worker, record.ID)
	if final.Status != ExportStatusSucceeded {
		t.Fatalf("final = %+v", final)
	}
	if len(final.Formats) != 2 || len(final.Artifacts) != 2 {
		t.Fatalf("defaults = %+v", final)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}

	byFormat := map[ExportFormat]ExportArtifact{}
	for _, artifact := range final.Artifacts {
		byFormat[artifact.Format] = artifact
	}

	_, reader, err := store.Get(ctx, byFormat[FormatCSV].Key)
	if err != nil {
		t.Fatalf("get csv: %v", err)
	}
	defer reader.Close()
	rows, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("csv rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != loan.ID || rows[1][2] != "person" {
		t.Fatalf("csv row = %v", rows[1])
	}

	_, reader, err = store.Get(ctx, byFormat[FormatJSON].Key)
	if err != nil {
		t.Fatalf("get json: %v", err)
	}
	defer reader.Close()
	payload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded struct {
		Loans []domain.Loan `json:"loans"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded.Loans) != 1 || decoded.Loans[0].ID != loan.ID {
		t.Fatalf("json loans = %+v", decoded.Loans)
	}

	statuses := map[ExportStatus]bool{}
	for _, entry := range audit.Entries() {
		if entry.Action != "loan_export" {
			t.Fatalf("audit action = %q", entry.Action)
		}
		if entry.Actor != "it-admin" {
			t.Fatalf("audit actor = %q", entry.Actor)
		}
		statuses[entry.Status] = true
	}
	for _, want := range []ExportStatus{ExportStatusQueued, ExportStatusRunning, ExportStatusSucceeded} {
		if !statuses[want] {
			t.Fatalf("missing audit status %s (have %v)", want, statuses)
		}
	}
}

func TestWorkerAppliesFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.OpenLoan(ctx, adminActor(), core.OpenLoanInput{
		AssetID: env.asset.ID,
		Target:  domain.TargetRef{Kind: domain.TargetPerson, ID: env.person.ID},
	}); err != nil {
		t.Fatalf("open 1: %v", err)
	}
	deskLoan, err := env.svc.OpenLoan(ctx, adminActor(), core.OpenLoanInput{
		AssetID: env.asset2.ID,
		Target:  domain.TargetRef{Kind: domain.TargetDesk, ID: env.desk.ID},
	})
	if err != nil {
		t.Fatalf("open 2: %v", err)
	}

	store := blob.NewMemory()
	worker := NewWorker(env.svc, store, nil)
	worker.Start()
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = worker.Stop(stopCtx)
	})

	record, err := worker.EnqueueExport(ctx, ExportInput{
		Actor:   adminActor(),
		Filter:  domain.LoanFilter{TargetKind: domain.TargetDesk},
		Formats: []ExportFormat{FormatJSON},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	final := waitForExport(t, worker, record.ID)
	if final.Status != ExportStatusSucceeded || len(final.Artifacts) != 1 {
		t.Fatalf("final = %+v", final)
	}

	_, reader, err := store.Get(ctx, final.Artifacts[0].Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer reader.Close()
	payload, _ := io.ReadAll(reader)
	var decoded struct {
		Loans []domain.Loan `json:"loans"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Loans) != 1 || decoded.Loans[0].ID != deskLoan.ID {
		t.Fatalf("filtered loans = %+v", decoded.Loans)
	}
}

func TestWorkerRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	worker := NewWorker(env.svc, blob.NewMemory(), nil)
	_, err := worker.EnqueueExport(context.Background(), ExportInput{
		Actor:   adminActor(),
		Formats: []ExportFormat{"parquet"},
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported export format") {
		t.Fatalf("err = %v", err)
	}
}

func TestWorkerFailsForDeniedActor(t *testing.T) {
	env := newTestEnv(t)
	worker := NewWorker(env.svc, blob.NewMemory(), nil)
	worker.Start()
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = worker.Stop(stopCtx)
	})

	// An unknown role cannot list loans, so the job fails after it runs.
	record, err := worker.EnqueueExport(context.Background(), ExportInput{
		Actor: domain.ActorContext{Subject: "ghost", Role: "visitor"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	final := waitForExport(t, worker, record.ID)
	if final.Status != ExportStatusFailed || final.Error == "" {
		t.Fatalf("final = %+v", final)
	}
}

func TestWorkerStopIsBounded(t *testing.T) {
	env := newTestEnv(t)
	worker := NewWorker(env.svc, blob.NewMemory(), nil)
	worker.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := worker.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
