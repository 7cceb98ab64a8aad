package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/auth"
	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/service"
)

// TransactionHandler serves the transaction endpoints. Every route requires authentication.
type TransactionHandler struct {
	transactions *service.TransactionService
	authn        *auth.Authenticator
	maxBody      int64
	logger       zerolog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactions *service.TransactionService, authn *auth.Authenticator, maxBody int64, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		authn:        authn,
		maxBody:      maxBody,
		logger:       logger.With().Str("handler", "transaction").Logger(),
	}
}

// RegisterRoutes registers transaction routes.
func (h *TransactionHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authn.Middleware)

		r.Post("/api/transactions", h.handleCreate)
		r.Get("/api/transactions/{transactionId}", h.handleGet)
		r.Patch("/api/transactions/{transactionId}/status", h.handleUpdateStatus)
		r.Get("/api/transactions/user/{userId}/transactions", h.handleHistory)
		r.Get("/users/{userId}/transactions", h.handleHistory)
	})
}

type createTransactionRequest struct {
	TransactionID string           `json:"transactionId" validate:"max=128"`
	Sender        string           `json:"sender" validate:"omitempty,uuid"`
	Receiver      string           `json:"receiver" validate:"required,uuid"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	Fee           *decimal.Decimal `json:"fee"`
	FileName      string           `json:"fileName" validate:"max=255"`
	FileID        string           `json:"fileId" validate:"max=255"`
	FileSize      int64            `json:"fileSize" validate:"gte=0"`
}

func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	// The sender is the caller. A body sender naming someone else is refused.
	if req.Sender != "" && uuid.MustParse(req.Sender) != ac.UserID {
		writeServiceError(w, r, domain.ErrAccessDenied)
		return
	}

	fee := decimal.Zero
	if req.Fee != nil {
		fee = *req.Fee
	}

	tx, err := h.transactions.Create(r.Context(), ac.UserID, service.CreateTransactionInput{
		TransactionID: req.TransactionID,
		ReceiverID:    uuid.MustParse(req.Receiver),
		Amount:        *req.Amount,
		Fee:           fee,
		FileName:      req.FileName,
		FileID:        req.FileID,
		FileSize:      req.FileSize,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	tx, err := h.transactions.Get(r.Context(), ac.UserID, chi.URLParam(r, "transactionId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *TransactionHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}
	next, err := domain.ParseTransactionStatus(req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	tx, err := h.transactions.UpdateStatus(r.Context(), ac.UserID, chi.URLParam(r, "transactionId"), next)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ac, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	limit, offset, err := pageParams(r)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}

	result, err := h.transactions.History(r.Context(), ac.UserID, chi.URLParam(r, "userId"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []*domain.Transaction{}
	}
	setTotalCount(w, result.Total)
	writeJSON(w, http.StatusOK, items)
}
