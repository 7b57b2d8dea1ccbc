package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/tmiguel/saldo/internal/transaction"
)

type transactionResponse struct {
	ID             uuid.UUID        `json:"id"`
	AccountID      uuid.UUID        `json:"account_id"`
	Amount         int64            `json:"amount"`
	SignedAmount   int64            `json:"signed_amount"`
	Type           transaction.Type `json:"type"`
	Date           time.Time        `json:"date"`
	Description    string           `json:"description"`
	Notes          string           `json:"notes,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	ExternalID     *string          `json:"external_id,omitempty"`
	ImportSource   *string          `json:"import_source,omitempty"`
	IsTransfer     bool             `json:"is_transfer"`
	TransferPairID *uuid.UUID       `json:"transfer_pair_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

type listResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Total        int                   `json:"total"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:             tx.ID,
		AccountID:      tx.AccountID,
		Amount:         tx.Amount,
		SignedAmount:   tx.SignedAmount(),
		Type:           tx.Type,
		Date:           tx.Date,
		Description:    tx.Description,
		Notes:          tx.Notes,
		Tags:           tx.Tags,
		CategoryID:     tx.CategoryID,
		ExternalID:     tx.ExternalID,
		ImportSource:   tx.ImportSource,
		IsTransfer:     tx.IsTransfer,
		TransferPairID: tx.TransferPairID,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}

func toListResponse(txs []*transaction.Transaction, total int) listResponse {
	resp := listResponse{
		Transactions: make([]transactionResponse, len(txs)),
		Total:        total,
	}

	for i, tx := range txs {
		resp.Transactions[i] = toResponse(tx)
	}

	return resp
}
