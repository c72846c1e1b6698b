package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"muleguard/intel-api/internal/domain"
	"muleguard/intel-api/internal/engine"
	"muleguard/intel-api/internal/store"
	"muleguard/intel-api/internal/webhook"
)

// maxUploadBytes caps the multipart form held in memory during a CSV upload.
const maxUploadBytes = 32 << 20 // 32 MiB

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	engine   *engine.Engine
	history  store.History
	registry *webhook.Registry
	notifier *webhook.Notifier
}

// NewHandler creates a Handler wired to the given dependencies.
func NewHandler(e *engine.Engine, h store.History, reg *webhook.Registry, n *webhook.Notifier) *Handler {
	return &Handler{engine: e, history: h, registry: reg, notifier: n}
}

// ─── POST /api/v1/upload ──────────────────────────────────────────────────────

// Upload accepts a multipart CSV of transactions, runs the full analysis
// pipeline, and returns the result synchronously.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "INVALID_FORM", "request must be multipart/form-data with a 'file' field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "MISSING_FILE", "form field 'file' is required")
		return
	}
	defer file.Close()

	batch, err := ParseCSV(file)
	if err != nil {
		badRequest(w, "INVALID_CSV", err.Error())
		return
	}

	result, err := h.engine.Analyze(r.Context(), batch)
	if err != nil {
		slog.Error("analysis failed", "filename", header.Filename, "error", err)
		internalError(w)
		return
	}

	h.notifier.NotifyAsync(result)

	ok(w, uploadResponse{
		UploadID:     uuid.NewString(),
		Filename:     header.Filename,
		RowsAnalyzed: len(batch),
		Result:       result,
	})
}

type uploadResponse struct {
	UploadID     string                 `json:"upload_id"`
	Filename     string                 `json:"filename"`
	RowsAnalyzed int                    `json:"rows_analyzed"`
	Result       *domain.AnalysisResult `json:"result"`
}

// ─── POST /api/v1/analyze ─────────────────────────────────────────────────────

// AnalyzeJSON runs the pipeline over a JSON array of transactions. Same
// semantics as Upload without the file plumbing; useful for integrations.
func (h *Handler) AnalyzeJSON(w http.ResponseWriter, r *http.Request) {
	var batch []domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		badRequest(w, "INVALID_JSON", "body must be a JSON array of transactions")
		return
	}
	for i, tx := range batch {
		if tx.TransactionID == "" || tx.SenderID == "" || tx.ReceiverID == "" {
			badRequest(w, "VALIDATION_ERROR",
				fmt.Sprintf("transaction %d: transaction_id, sender_id and receiver_id are required", i))
			return
		}
		if tx.Amount < 0 {
			badRequest(w, "VALIDATION_ERROR", fmt.Sprintf("transaction %d: amount must not be negative", i))
			return
		}
	}

	result, err := h.engine.Analyze(r.Context(), batch)
	if err != nil {
		slog.Error("analysis failed", "transactions", len(batch), "error", err)
		internalError(w)
		return
	}

	h.notifier.NotifyAsync(result)
	ok(w, result)
}

// ─── GET /api/v1/history ──────────────────────────────────────────────────────

// History returns the full persistent suspicion memory, ordered by account ID.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.ListAll(r.Context())
	if err != nil {
		slog.Error("listing suspicion history", "error", err)
		internalError(w)
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	ok(w, map[string]any{
		"total_records": len(records),
		"history":       records,
	})
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

// RegisterWebhook adds a new webhook endpoint.
func (h *Handler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL       string  `json:"url"`
		Threshold float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}
	if req.URL == "" {
		badRequest(w, "MISSING_URL", "url is required")
		return
	}
	if req.Threshold < 0 || req.Threshold > 100 {
		badRequest(w, "INVALID_THRESHOLD", "threshold must be between 0 and 100")
		return
	}
	if req.Threshold == 0 {
		req.Threshold = domain.ThresholdHigh // default to the HIGH tier cutoff
	}

	created(w, h.registry.Register(req.URL, req.Threshold))
}

// DeleteWebhook deactivates and removes a webhook.
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.registry.Delete(id) {
		notFound(w, fmt.Sprintf("webhook '%s' not found", id))
		return
	}
	noContent(w)
}

// ─── GET /health ──────────────────────────────────────────────────────────────

// Health reports liveness plus a timestamp for quick sanity checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{
		"status":  "ok",
		"service": "muleguard-intel-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
