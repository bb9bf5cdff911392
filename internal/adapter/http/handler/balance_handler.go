package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/adapter/http/dto"
	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
)

// BalanceService defines the read operations the handler needs.
type BalanceService interface {
	Balances(ctx context.Context, accountID string) (*domain.BalanceRecord, error)
	AvailableCapacity(ctx context.Context) (decimal.Decimal, error)
	GetOperation(ctx context.Context, id string) (*domain.Operation, error)
	ListOperationsByAccount(ctx context.Context, input usecase.ListOperationsInput) ([]*domain.Operation, error)
}

// BalanceHandler handles balance and journal reads.
type BalanceHandler struct {
	bankUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(bankUC BalanceService) *BalanceHandler {
	return &BalanceHandler{bankUC: bankUC}
}

// Me reports the caller's balances. An account that never transacted gets
// a zero record rather than a 404.
func (h *BalanceHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	record, err := h.bankUC.Balances(r.Context(), user.ID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read balances", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(record))
}

// Capacity reports how much more the bank can absorb.
func (h *BalanceHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	available, err := h.bankUC.AvailableCapacity(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read capacity", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.CapacityResponse{Available: available})
}

// ListOperations pages through the caller's journal entries, newest first.
func (h *BalanceHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	ops, err := h.bankUC.ListOperationsByAccount(r.Context(), usecase.ListOperationsInput{
		AccountID: user.ID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list operations", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListOperationsResponse{
		Operations: dto.OperationsFromDomain(ops),
		Limit:      limit,
		Offset:     offset,
	})
}

// GetOperation retrieves one journal entry. Non-admins only see their own
// entries; anything else reads as not found.
func (h *BalanceHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	user, ok := callerFromContext(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing operation ID", "")
		return
	}

	op, err := h.bankUC.GetOperation(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get operation", err.Error())
		return
	}

	if op.AccountID != user.ID && !user.Role.CanAdminister() {
		writeError(w, http.StatusNotFound, "failed to get operation", domain.ErrOperationNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.OperationFromDomain(op))
}
