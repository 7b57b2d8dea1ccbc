package transaction

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/account"
	"github.com/tmiguel/saldo/internal/http/middleware"
	"github.com/tmiguel/saldo/internal/summary"
	"github.com/tmiguel/saldo/internal/transaction"
)

type Handler struct {
	svc       *transaction.Service
	summaries *summary.Service
}

func NewHandler(svc *transaction.Service, summaries *summary.Service) *Handler {
	return &Handler{svc: svc, summaries: summaries}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	AccountID   uuid.UUID        `json:"account_id"`
	Amount      int64            `json:"amount"`
	Type        transaction.Type `json:"type"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	Notes       string           `json:"notes"`
	Tags        []string         `json:"tags"`
	CategoryID  *uuid.UUID       `json:"category_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Create(r.Context(), middleware.UserID(r.Context()), transaction.CreateParams{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		Date:        req.Date,
		Description: req.Description,
		Notes:       req.Notes,
		Tags:        req.Tags,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.invalidate(r, tx.AccountID)
	writeJSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{}
	q := r.URL.Query()

	if s := q.Get("account_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid account_id", http.StatusBadRequest)
			return
		}

		filter.AccountID = new(id)
	}

	if s := q.Get("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid category_id", http.StatusBadRequest)
			return
		}

		filter.CategoryID = new(id)
	}

	if s := q.Get("type"); s != "" {
		filter.Type = new(transaction.Type(s))
	}

	if s := q.Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := q.Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(t)
		}
	}

	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Limit = n
		}
	}

	if s := q.Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Offset = n
		}
	}

	txs, total, err := h.svc.List(r.Context(), middleware.UserID(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(txs, total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

type updateTransactionRequest struct {
	AccountID   *uuid.UUID        `json:"account_id,omitempty"`
	Amount      *int64            `json:"amount,omitempty"`
	Type        *transaction.Type `json:"type,omitempty"`
	Date        *time.Time        `json:"date,omitempty"`
	Description *string           `json:"description,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
	Tags        *[]string         `json:"tags,omitempty"`
	CategoryID  *uuid.UUID        `json:"category_id,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := middleware.UserID(r.Context())

	// The pre-update account also needs its cached summary dropped when the
	// patch moves the row.
	existing, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.svc.Update(r.Context(), userID, id, transaction.UpdatePatch{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		Date:        req.Date,
		Description: req.Description,
		Notes:       req.Notes,
		Tags:        req.Tags,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.invalidate(r, existing.AccountID)

	if tx.AccountID != existing.AccountID {
		h.invalidate(r, tx.AccountID)
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	userID := middleware.UserID(r.Context())

	existing, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Deleting one side of a transfer unlinks the partner, whose row usually
	// lives on another account. That account's cached summary goes stale too.
	var partnerAccountID *uuid.UUID

	if existing.IsTransfer && existing.TransferPairID != nil {
		if partner, err := h.svc.Get(r.Context(), userID, *existing.TransferPairID); err == nil {
			partnerAccountID = &partner.AccountID
		}
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	h.invalidate(r, existing.AccountID)

	if partnerAccountID != nil && *partnerAccountID != existing.AccountID {
		h.invalidate(r, *partnerAccountID)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(r *http.Request, accountID uuid.UUID) {
	if err := h.summaries.Invalidate(r.Context(), accountID); err != nil {
		slog.Warn("failed to invalidate summary cache", "account_id", accountID, "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transaction.ErrNotFound), errors.Is(err, account.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, transaction.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, transaction.ErrConsistency):
		http.Error(w, "conflict, retry the request", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
