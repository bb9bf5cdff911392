package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/tokenbank/internal/adapter/http/dto"
	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/usecase"
)

// StatisticsService defines the bank-wide reads the handler needs.
type StatisticsService interface {
	BankStatistics(ctx context.Context) (*usecase.BankStatistics, error)
	TransactionStatistics(ctx context.Context) (*usecase.TransactionStatistics, error)
}

// OracleAdminService defines the oracle control operations the handler needs.
type OracleAdminService interface {
	Replace(ctx context.Context, spec domain.FeedSpec) (string, error)
	Current() string
}

// ConsistencyService defines the reconciliation check the handler needs.
type ConsistencyService interface {
	CheckConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
}

// AdminHandler handles bank-wide statistics, reconciliation sweeps and
// oracle swaps. The router guards the whole subtree behind the admin role.
type AdminHandler struct {
	stats       StatisticsService
	oracle      OracleAdminService
	consistency ConsistencyService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats StatisticsService, oracle OracleAdminService, consistency ConsistencyService) *AdminHandler {
	return &AdminHandler{
		stats:       stats,
		oracle:      oracle,
		consistency: consistency,
	}
}

// BankStatistics reports the global accounting figures and the active feed.
func (h *AdminHandler) BankStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.BankStatistics(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read statistics", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BankStatisticsFromDomain(stats, h.oracle.Current()))
}

// TransactionStatistics reports the transition counters.
func (h *AdminHandler) TransactionStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.TransactionStatistics(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read statistics", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionStatisticsResponse{
		DepositCount:    stats.DepositCount,
		WithdrawalCount: stats.WithdrawalCount,
	})
}

// Consistency runs a reconciliation sweep and reports the result. A report
// with Consistent=false still returns 200; the sweep itself succeeded.
func (h *AdminHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.consistency.CheckConsistency(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "consistency check failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromDomain(report))
}

// ReplaceOracle swaps the active price feed. A candidate that cannot
// produce one valid reading is refused and the previous feed stays active.
func (h *AdminHandler) ReplaceOracle(w http.ResponseWriter, r *http.Request) {
	var req dto.ReplaceOracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	label, err := h.oracle.Replace(r.Context(), req.ToFeedSpec())
	if err != nil {
		if label == "" {
			writeError(w, http.StatusUnprocessableEntity, "feed rejected", err.Error())
			return
		}
		// The swap took effect but journaling it failed.
		writeError(w, http.StatusInternalServerError, "feed swapped, journaling failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.OracleFeedResponse{Feed: label})
}
