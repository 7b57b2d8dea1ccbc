package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
	"github.com/tmiguel/saldo/internal/http/middleware"
	"github.com/tmiguel/saldo/internal/importer"
	"github.com/tmiguel/saldo/internal/reconcile"
	"github.com/tmiguel/saldo/internal/summary"
)

type Handler struct {
	importSvc    *importer.Service
	reconcileSvc *reconcile.Service
	summaries    *summary.Service
}

func NewHandler(importSvc *importer.Service, reconcileSvc *reconcile.Service, summaries *summary.Service) *Handler {
	return &Handler{
		importSvc:    importSvc,
		reconcileSvc: reconcileSvc,
		summaries:    summaries,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFile)
	r.Post("/candidates", h.importCandidates)
}

type importResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// importFile takes a multipart statement file, parses it, and reconciles the
// candidates into the account. Re-uploading the same statement is a no-op.
func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	accountID, err := uuid.Parse(r.FormValue("account_id"))
	if err != nil {
		http.Error(w, "account_id field is required", http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatCSV
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	candidates, err := h.importSvc.Parse(format, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	source := string(format)
	if header.Filename != "" {
		source = header.Filename
	}

	h.reconcileAndRespond(w, r, accountID, source, candidates)
}

type candidateDTO struct {
	Date        time.Time `json:"date"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	ExternalID  string    `json:"external_id"`
}

type importCandidatesRequest struct {
	AccountID  uuid.UUID      `json:"account_id"`
	Source     string         `json:"source"`
	Candidates []candidateDTO `json:"candidates"`
}

// importCandidates reconciles pre-parsed candidates, for clients that do
// their own statement parsing.
func (h *Handler) importCandidates(w http.ResponseWriter, r *http.Request) {
	var req importCandidatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Source == "" {
		req.Source = "api"
	}

	candidates := make([]reconcile.Candidate, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		candidates = append(candidates, reconcile.Candidate{
			Date:        c.Date,
			Amount:      c.Amount,
			Description: c.Description,
			ExternalID:  c.ExternalID,
		})
	}

	h.reconcileAndRespond(w, r, req.AccountID, req.Source, candidates)
}

func (h *Handler) reconcileAndRespond(w http.ResponseWriter, r *http.Request, accountID uuid.UUID, source string, candidates []reconcile.Candidate) {
	result, err := h.reconcileSvc.Import(r.Context(), middleware.UserID(r.Context()), accountID, source, candidates)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if err := h.summaries.Invalidate(r.Context(), accountID); err != nil {
		slog.Warn("failed to invalidate summary cache", "account_id", accountID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(importResponse{Created: result.Created, Updated: result.Updated}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
