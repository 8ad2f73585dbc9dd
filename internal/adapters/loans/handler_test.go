package loans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inventorycore/internal/core"
	"inventorycore/internal/infra/blob"
	"inventorycore/internal/infra/persistence/memory"
	"inventorycore/pkg/domain"
)

type testEnv struct {
	handler *Handler
	worker  *Worker
	svc     *core.Service

	person domain.Person
	desk   domain.Desk
	asset  domain.Asset
	asset2 domain.Asset
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	svc := core.NewService(store)

	office, _, err := svc.CreateOffice(ctx, domain.Office{Name: "Berlin"})
	if err != nil {
		t.Fatalf("office: %v", err)
	}
	dept, _, err := svc.CreateDepartment(ctx, domain.Department{OfficeID: office.ID, Name: "Engineering"})
	if err != nil {
		t.Fatalf("department: %v", err)
	}
	person, _, err := svc.CreatePerson(ctx, domain.Person{FirstName: "Ada", LastName: "Lovelace", DepartmentID: &dept.ID})
	if err != nil {
		t.Fatalf("person: %v", err)
	}
	room, _, err := svc.CreateRoom(ctx, domain.Room{OfficeID: office.ID, Name: "North"})
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	desk, _, err := svc.CreateDesk(ctx, domain.Desk{RoomID: room.ID, Code: "D7"})
	if err != nil {
		t.Fatalf("desk: %v", err)
	}
	category, _, err := svc.CreateAssetCategory(ctx, domain.AssetCategory{Name: "Laptop"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	asset, _, err := svc.CreateAsset(ctx, domain.Asset{CategoryID: category.ID, Name: "ThinkPad", SerialNumber: "SN-1"})
	if err != nil {
		t.Fatalf("asset: %v", err)
	}
	asset2, _, err := svc.CreateAsset(ctx, domain.Asset{CategoryID: category.ID, Name: "MacBook", SerialNumber: "SN-2"})
	if err != nil {
		t.Fatalf("asset2: %v", err)
	}

	worker := NewWorker(svc, blob.NewMemory(), &MemoryAuditLog{})
	handler := NewHandler(svc)
	handler.Exports = worker
	return &testEnv{handler: handler, worker: worker, svc: svc,
		person: person, desk: desk, asset: asset, asset2: asset2}
}

func doJSON(t *testing.T, h http.Handler, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Actor": "it-admin", "X-Actor-Role": "admin"}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder, key string) T {
	t.Helper()
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	var out T
	if err := json.Unmarshal(envelope[key], &out); err != nil {
		t.Fatalf("decode %s: %v (%s)", key, err, rec.Body.String())
	}
	return out
}

func TestLoanLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/loans", adminHeaders(), map[string]any{
		"asset_id": env.asset.ID,
		"target":   map[string]string{"kind": "person", "id": env.person.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status = %d body %s", rec.Code, rec.Body.String())
	}
	loan := decode[domain.Loan](t, rec, "loan")
	if loan.Status != domain.LoanActive {
		t.Fatalf("loan = %+v", loan)
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/api/v1/loans?active=1", adminHeaders(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if loans := decode[[]domain.Loan](t, rec, "loans"); len(loans) != 1 {
		t.Fatalf("active = %d", len(loans))
	}

	rec = doJSON(t, env.handler, http.MethodPost, "/api/v1/loans/"+loan.ID+"/return", adminHeaders(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("return status = %d body %s", rec.Code, rec.Body.String())
	}
	closed := decode[domain.Loan](t, rec, "loan")
	if closed.Status != domain.LoanReturned {
		t.Fatalf("closed = %+v", closed)
	}

	// Second return conflicts.
	rec = doJSON(t, env.handler, http.MethodPost, "/api/v1/loans/"+loan.ID+"/return", adminHeaders(), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double return status = %d", rec.Code)
	}
}

func TestHTTPErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		method string
		path   string
		header map[string]string
		body   any
		want   int
	}{
		{"unknown asset", http.MethodPost, "/api/v1/loans", adminHeaders(),
			map[string]any{"asset_id": "nope", "target": map[string]string{"kind": "person", "id": env.person.ID}},
			http.StatusNotFound},
		{"bad target kind", http.MethodPost, "/api/v1/loans", adminHeaders(),
			map[string]any{"asset_id": env.asset.ID, "target": map[string]string{"kind": "planet", "id": "x"}},
			http.StatusUnprocessableEntity},
		{"forbidden role", http.MethodPost, "/api/v1/loans",
			map[string]string{"X-Actor": "joe", "X-Actor-Role": "employee", "X-Actor-Person": env.person.ID},
			map[string]any{"asset_id": env.asset.ID, "target": map[string]string{"kind": "desk", "id": env.desk.ID}},
			http.StatusForbidden},
		{"unknown loan", http.MethodPost, "/api/v1/loans/nope/return", adminHeaders(), nil,
			http.StatusNotFound},
		{"bad active flag", http.MethodGet, "/api/v1/loans?active=maybe", adminHeaders(), nil,
			http.StatusBadRequest},
		{"bad timestamp", http.MethodGet, "/api/v1/loans?from=yesterday", adminHeaders(), nil,
			http.StatusBadRequest},
		{"method not allowed", http.MethodDelete, "/api/v1/loans", adminHeaders(), nil,
			http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, env.handler, tc.method, tc.path, tc.header, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestDeskConflictOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	open := func(assetID string) *httptest.ResponseRecorder {
		return doJSON(t, env.handler, http.MethodPost, "/api/v1/loans", adminHeaders(), map[string]any{
			"asset_id": assetID,
			"target":   map[string]string{"kind": "desk", "id": env.desk.ID},
		})
	}
	if rec := open(env.asset.ID); rec.Code != http.StatusCreated {
		t.Fatalf("first open = %d", rec.Code)
	}
	rec := open(env.asset2.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second open = %d, want 409", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] == "" {
		t.Fatal("expected error message")
	}
}

func TestAssetEndpoints(t *testing.T) {
	env := newTestEnv(t)

	// Creation is admin only.
	body := map[string]any{"category_id": env.asset.CategoryID, "name": "Dock", "serial_number": "SN-3"}
	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/assets",
		map[string]string{"X-Actor": "joe", "X-Actor-Role": "employee", "X-Actor-Person": env.person.ID}, body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employee create = %d", rec.Code)
	}
	rec = doJSON(t, env.handler, http.MethodPost, "/api/v1/assets", adminHeaders(), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d body %s", rec.Code, rec.Body.String())
	}
	created := decode[domain.Asset](t, rec, "asset")
	if created.Status != domain.StatusAvailable {
		t.Fatalf("created status = %s", created.Status)
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/api/v1/assets", adminHeaders(), nil)
	if assets := decode[[]domain.Asset](t, rec, "assets"); len(assets) != 3 {
		t.Fatalf("assets = %d", len(assets))
	}

	// Status transition endpoints.
	for _, step := range []struct {
		action string
		want   domain.AssetStatus
	}{
		{"in-service", domain.StatusInService},
		{"restore", domain.StatusAvailable},
		{"retire", domain.StatusRetired},
	} {
		rec = doJSON(t, env.handler, http.MethodPost,
			fmt.Sprintf("/api/v1/assets/%s/%s", created.ID, step.action), adminHeaders(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d body %s", step.action, rec.Code, rec.Body.String())
		}
		if asset := decode[domain.Asset](t, rec, "asset"); asset.Status != step.want {
			t.Fatalf("%s status = %s, want %s", step.action, asset.Status, step.want)
		}
	}

	// Retired is terminal.
	rec = doJSON(t, env.handler, http.MethodPost,
		fmt.Sprintf("/api/v1/assets/%s/restore", created.ID), adminHeaders(), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("restore retired = %d", rec.Code)
	}
}

func TestExportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.worker.Stop(ctx)
	})

	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/loans", adminHeaders(), map[string]any{
		"asset_id": env.asset.ID,
		"target":   map[string]string{"kind": "person", "id": env.person.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open = %d", rec.Code)
	}

	// Employees may not export.
	rec = doJSON(t, env.handler, http.MethodPost, "/api/v1/exports",
		map[string]string{"X-Actor": "joe", "X-Actor-Role": "employee", "X-Actor-Person": env.person.ID},
		map[string]any{"formats": []string{"csv"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employee export = %d", rec.Code)
	}

	rec = doJSON(t, env.handler, http.MethodPost, "/api/v1/exports", adminHeaders(),
		map[string]any{"formats": []string{"csv", "json"}, "reason": "quarterly audit"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("export = %d body %s", rec.Code, rec.Body.String())
	}
	record := decode[ExportRecord](t, rec, "export")
	if record.Status != ExportStatusQueued {
		t.Fatalf("status = %s", record.Status)
	}

	final := waitForExport(t, env.worker, record.ID)
	if final.Status != ExportStatusSucceeded {
		t.Fatalf("final = %+v", final)
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/api/v1/exports/"+record.ID, adminHeaders(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get export = %d", rec.Code)
	}
	fetched := decode[ExportRecord](t, rec, "export")
	if len(fetched.Artifacts) != 2 {
		t.Fatalf("artifacts = %d", len(fetched.Artifacts))
	}

	rec = doJSON(t, env.handler, http.MethodGet, "/api/v1/exports/nope", adminHeaders(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing export = %d", rec.Code)
	}

	rec = doJSON(t, env.handler, http.MethodPost, "/api/v1/exports", adminHeaders(),
		map[string]any{"formats": []string{"parquet"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad format = %d", rec.Code)
	}
}

func TestExportAcceptsEmptyBody(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.handler, http.MethodPost, "/api/v1/exports", adminHeaders(), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("empty body export = %d body %s", rec.Code, rec.Body.String())
	}
	record := decode[ExportRecord](t, rec, "export")
	if len(record.Formats) != 2 {
		t.Fatalf("formats = %v, want json+csv defaults", record.Formats)
	}
}

func waitForExport(t *testing.T, w *Worker, id string) ExportRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := w.GetExport(id)
		if !ok {
			t.Fatalf("export %s disappeared", id)
		}
		if record.Status == ExportStatusSucceeded || record.Status == ExportStatusFailed {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("export %s did not finish", id)
	return ExportRecord{}
}
