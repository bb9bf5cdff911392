package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/adapter/http/dto"
	"github.com/iho/tokenbank/internal/domain"
)

// BankService defines the settlement transitions the handler needs.
type BankService interface {
	DepositNative(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error)
	DepositToken(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error)
	WithdrawNative(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error)
	WithdrawToken(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Operation, error)
}

// BankHandler handles deposit and withdrawal requests. The caller's own
// account comes from the authenticated identity; only receipts name an
// account explicitly.
type BankHandler struct {
	bankUC BankService
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(bankUC BankService) *BankHandler {
	return &BankHandler{bankUC: bankUC}
}

// DepositNative records a native deposit for the caller's account.
func (h *BankHandler) DepositNative(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	op, err := h.bankUC.DepositNative(r.Context(), user.ID, req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to record deposit", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.OperationFromDomain(op))
}

// DepositToken records a token deposit for the caller's account.
func (h *BankHandler) DepositToken(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	op, err := h.bankUC.DepositToken(r.Context(), user.ID, req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to record deposit", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.OperationFromDomain(op))
}

// ReceiptNative records a bare incoming native transfer for any account.
// The settlement layer observes these transfers directly, so the target
// account is part of the request and the caller needs the operator role.
func (h *BankHandler) ReceiptNative(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}
	if !user.Role.CanSubmitReceipts() {
		writeError(w, http.StatusForbidden, "forbidden", domain.ErrInsufficientRole.Error())
		return
	}

	var req dto.ReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	op, err := h.bankUC.DepositNative(r.Context(), req.AccountID, req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to record receipt", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.OperationFromDomain(op))
}

// WithdrawNative pays out native units from the caller's account.
func (h *BankHandler) WithdrawNative(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	op, err := h.bankUC.WithdrawNative(r.Context(), user.ID, req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to withdraw", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.OperationFromDomain(op))
}

// WithdrawToken pays out token units from the caller's account.
func (h *BankHandler) WithdrawToken(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	op, err := h.bankUC.WithdrawToken(r.Context(), user.ID, req.Amount)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to withdraw", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.OperationFromDomain(op))
}
