package transfer

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/http/middleware"
	"github.com/tmiguel/saldo/internal/transfer"
)

type Handler struct {
	svc *transfer.Service
}

func NewHandler(svc *transfer.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/detect", h.detect)
}

type detectRequest struct {
	AccountID *uuid.UUID `json:"account_id,omitempty"`
}

type detectResponse struct {
	Pairs int `json:"pairs"`
}

func (h *Handler) detect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest

	// An empty body means detect across all accounts.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	pairs, err := h.svc.Detect(r.Context(), middleware.UserID(r.Context()), req.AccountID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(detectResponse{Pairs: pairs}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
