package loans

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"inventorycore/internal/core"
	"inventorycore/pkg/domain"
)

// Handler provides HTTP access to loans, assets, and exports.
type Handler struct {
	Service *core.Service
	Exports ExportScheduler
	Logger  core.Logger
}

// NewHandler constructs a loans HTTP handler.
func NewHandler(svc *core.Service) *Handler {
	return &Handler{Service: svc, Logger: core.NopLogger()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/loans":
		h.handleLoans(w, r)
	case strings.HasPrefix(path, "/api/v1/loans/"):
		h.handleLoan(w, r, strings.TrimPrefix(path, "/api/v1/loans/"))
	case path == "/api/v1/assets":
		h.handleAssets(w, r)
	case strings.HasPrefix(path, "/api/v1/assets/"):
		h.handleAsset(w, r, strings.TrimPrefix(path, "/api/v1/assets/"))
	case path == "/api/v1/exports":
		h.handleExportCreate(w, r)
	case strings.HasPrefix(path, "/api/v1/exports/"):
		h.handleExportGet(w, r, strings.TrimPrefix(path, "/api/v1/exports/"))
	default:
		http.NotFound(w, r)
	}
}

// Actor identity travels in headers; the engine itself stays
// authentication-agnostic and trusts the fronting proxy.
func actorFromRequest(r *http.Request) domain.ActorContext {
	actor := domain.ActorContext{
		Subject: r.Header.Get("X-Actor"),
		Role:    domain.Role(r.Header.Get("X-Actor-Role")),
	}
	if v := r.Header.Get("X-Actor-Person"); v != "" {
		actor.PersonID = &v
	}
	if v := r.Header.Get("X-Actor-Office"); v != "" {
		actor.OfficeID = &v
	}
	return actor
}

type openLoanRequest struct {
	AssetID string `json:"asset_id"`
	Target  struct {
		Kind string `json:"kind"`
		ID   string `json:"id"`
	} `json:"target"`
	DueDate  *time.Time `json:"due_date"`
	IssuedBy string     `json:"issued_by"`
}

func (h *Handler) handleLoans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleLoanList(w, r)
	case http.MethodPost:
		h.handleLoanOpen(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleLoanOpen(w http.ResponseWriter, r *http.Request) {
	var req openLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan request payload")
		return
	}
	actor := actorFromRequest(r)
	loan, err := h.Service.OpenLoan(r.Context(), actor, core.OpenLoanInput{
		AssetID:  req.AssetID,
		Target:   domain.TargetRef{Kind: domain.TargetKind(req.Target.Kind), ID: req.Target.ID},
		DueDate:  req.DueDate,
		IssuedBy: req.IssuedBy,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"loan": loan})
}

func (h *Handler) handleLoan(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	actor := actorFromRequest(r)
	switch {
	case len(segments) == 1 && r.Method == http.MethodGet:
		loan, err := h.Service.GetLoan(r.Context(), actor, segments[0])
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"loan": loan})
	case len(segments) == 2 && segments[1] == "return":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		loan, err := h.Service.CloseLoan(r.Context(), actor, segments[0])
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"loan": loan})
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleLoanList(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor := actorFromRequest(r)
	var loans []domain.Loan
	if filter.ActiveOnly {
		loans, err = h.Service.ListActiveLoans(r.Context(), actor, filter)
	} else {
		loans, err = h.Service.ListLoanHistory(r.Context(), actor, filter)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loans": loans})
}

func filterFromQuery(r *http.Request) (domain.LoanFilter, error) {
	q := r.URL.Query()
	filter := domain.LoanFilter{
		AssetID:      q.Get("asset"),
		TargetKind:   domain.TargetKind(q.Get("target_kind")),
		TargetID:     q.Get("target_id"),
		DepartmentID: q.Get("department"),
	}
	switch q.Get("active") {
	case "", "0", "false":
	case "1", "true":
		filter.ActiveOnly = true
	default:
		return filter, errors.New("invalid active parameter")
	}
	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("invalid from timestamp, want RFC3339")
		}
		filter.OpenedFrom = &ts
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("invalid to timestamp, want RFC3339")
		}
		filter.OpenedTo = &ts
	}
	return filter, nil
}

type createAssetRequest struct {
	CategoryID   string     `json:"category_id"`
	Name         string     `json:"name"`
	SerialNumber string     `json:"serial_number"`
	AssetTag     string     `json:"asset_tag"`
	PurchaseDate *time.Time `json:"purchase_date"`
	Notes        string     `json:"notes"`
}

func (h *Handler) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"assets": h.Service.ListAssets(r.Context())})
	case http.MethodPost:
		var req createAssetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid asset payload")
			return
		}
		actor := actorFromRequest(r)
		if err := h.Service.Authorize(r.Context(), actor, core.ActionAssetWrite, core.Scope{}); err != nil {
			h.writeDomainError(w, err)
			return
		}
		asset, _, err := h.Service.CreateAsset(r.Context(), domain.Asset{
			CategoryID:   req.CategoryID,
			Name:         req.Name,
			SerialNumber: req.SerialNumber,
			AssetTag:     req.AssetTag,
			PurchaseDate: req.PurchaseDate,
			Notes:        req.Notes,
		})
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"asset": asset})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleAsset(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	actor := actorFromRequest(r)

	if len(segments) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		asset, ok := h.Service.GetAsset(r.Context(), segments[0])
		if !ok {
			writeError(w, http.StatusNotFound, "asset not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"asset": asset})
		return
	}

	if len(segments) != 2 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		asset domain.Asset
		err   error
	)
	switch segments[1] {
	case "in-service":
		asset, err = h.Service.PlaceAssetInService(r.Context(), actor, segments[0])
	case "restore":
		asset, err = h.Service.ReturnAssetToService(r.Context(), actor, segments[0])
	case "retire":
		asset, err = h.Service.RetireAsset(r.Context(), actor, segments[0])
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asset": asset})
}

type exportRequest struct {
	Filter struct {
		AssetID      string     `json:"asset_id"`
		TargetKind   string     `json:"target_kind"`
		TargetID     string     `json:"target_id"`
		DepartmentID string     `json:"department_id"`
		From         *time.Time `json:"from"`
		To           *time.Time `json:"to"`
		ActiveOnly   bool       `json:"active_only"`
	} `json:"filter"`
	Formats []string `json:"formats"`
	Reason  string   `json:"reason"`
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	actor := actorFromRequest(r)
	if err := h.Service.Authorize(r.Context(), actor, core.ActionLoanExport, core.Scope{}); err != nil {
		h.writeDomainError(w, err)
		return
	}
	formats, err := ParseExportFormats(req.Formats)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
		Actor: actor,
		Filter: domain.LoanFilter{
			AssetID:      req.Filter.AssetID,
			TargetKind:   domain.TargetKind(req.Filter.TargetKind),
			TargetID:     req.Filter.TargetID,
			DepartmentID: req.Filter.DepartmentID,
			OpenedFrom:   req.Filter.From,
			OpenedTo:     req.Filter.To,
			ActiveOnly:   req.Filter.ActiveOnly,
		},
		Formats: formats,
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExportGet(w http.ResponseWriter, r *http.Request, id string) {
	if h.Exports == nil || id == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var (
		forbidden   domain.ForbiddenError
		notFound    domain.NotFoundError
		conflict    domain.ConflictError
		unavailable domain.AssetUnavailableError
		transition  domain.TransitionError
		badKind     domain.TargetKindError
		violation   domain.RuleViolationError
	)
	switch {
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unavailable), errors.As(err, &transition),
		errors.As(err, &badKind), errors.As(err, &violation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
