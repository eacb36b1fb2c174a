package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"treasury/internal/compliance/models"
	"treasury/pkg/platform/audit"
	"treasury/pkg/platform/httputil"
	"treasury/pkg/requestcontext"
)

// Service defines the compliance operations exposed over HTTP.
type Service interface {
	Ingest(ctx context.Context, raw models.RawRecord) (*models.ComplianceRecord, error)
	Export(ctx context.Context, recordID string) ([]byte, error)
	Reconcile(ctx context.Context, recordID string) (*models.ComplianceRecord, error)
	UpdateComplianceStatus(ctx context.Context, recordID string, req *models.UpdateStatusRequest) (*models.ComplianceRecord, error)
	ReconcilePending(ctx context.Context) (int, error)
	AuditTrail(ctx context.Context, recordID string) ([]audit.Event, error)
}

// Handler wires compliance endpoints to the compliance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a compliance handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Post("/records", h.HandleIngest)
		r.Get("/records/{recordID}", h.HandleGet)
		r.Post("/records/{recordID}/reconcile", h.HandleReconcile)
		r.Put("/records/{recordID}/status", h.HandleUpdateStatus)
		r.Get("/records/{recordID}/audit", h.HandleAuditTrail)
		r.Post("/reconcile-pending", h.HandleReconcilePending)
	})
}

// HandleIngest handles POST /compliance/records.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	raw, ok := httputil.DecodeAndPrepare[models.RawRecord](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Ingest(ctx, *raw)
	if err != nil {
		h.logFailure(ctx, "compliance record ingest failed", raw.RecordID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, rec.ToMap())
}

// HandleGet handles GET /compliance/records/{recordID} and returns the
// interchange document.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := chi.URLParam(r, "recordID")

	doc, err := h.service.Export(ctx, recordID)
	if err != nil {
		h.logFailure(ctx, "compliance record lookup failed", recordID, err)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// HandleReconcile handles POST /compliance/records/{recordID}/reconcile.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := chi.URLParam(r, "recordID")

	rec, err := h.service.Reconcile(ctx, recordID)
	if err != nil {
		h.logFailure(ctx, "compliance record reconcile failed", recordID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rec.ToMap())
}

// HandleUpdateStatus handles PUT /compliance/records/{recordID}/status.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	recordID := chi.URLParam(r, "recordID")

	req, ok := httputil.DecodeAndPrepare[models.UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.UpdateComplianceStatus(ctx, recordID, req)
	if err != nil {
		h.logFailure(ctx, "compliance status update failed", recordID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rec.ToMap())
}

// HandleAuditTrail handles GET /compliance/records/{recordID}/audit.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := chi.URLParam(r, "recordID")

	events, err := h.service.AuditTrail(ctx, recordID)
	if err != nil {
		h.logFailure(ctx, "audit trail lookup failed", recordID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAuditTrailResponse(recordID, events))
}

// HandleReconcilePending handles POST /compliance/reconcile-pending.
func (h *Handler) HandleReconcilePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.service.ReconcilePending(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch reconciliation failed",
			"request_id", requestcontext.RequestID(ctx),
			"reconciled_count", n,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ReconcilePendingResponse{Reconciled: n})
}

func (h *Handler) logFailure(ctx context.Context, msg, recordID string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"record_id", recordID,
		"error", err,
	)
}
