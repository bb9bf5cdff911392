package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/adapter/http/dto"
)

// ConvertService defines the quote operations the handler needs.
type ConvertService interface {
	TokenToNativeValue(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	NativeToTokenValue(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
}

// ConvertHandler quotes conversions at the current oracle price. Quotes are
// informational; a later transition fetches its own reading and may settle
// at a different price.
type ConvertHandler struct {
	converter ConvertService
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler(converter ConvertService) *ConvertHandler {
	return &ConvertHandler{converter: converter}
}

// TokenToNative quotes the native value of a token amount.
func (h *ConvertHandler) TokenToNative(w http.ResponseWriter, r *http.Request) {
	amount, ok := parseAmountQuery(w, r)
	if !ok {
		return
	}

	converted, err := h.converter.TokenToNativeValue(r.Context(), amount)
	if err != nil {
		writeError(w, mapDomainError(err), "conversion failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConversionResponse{Amount: amount, Converted: converted})
}

// NativeToToken quotes the token value of a native amount.
func (h *ConvertHandler) NativeToToken(w http.ResponseWriter, r *http.Request) {
	amount, ok := parseAmountQuery(w, r)
	if !ok {
		return
	}

	converted, err := h.converter.NativeToTokenValue(r.Context(), amount)
	if err != nil {
		writeError(w, mapDomainError(err), "conversion failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConversionResponse{Amount: amount, Converted: converted})
}

func parseAmountQuery(w http.ResponseWriter, r *http.Request) (decimal.Decimal, bool) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing amount", "amount query parameter is required")
		return decimal.Decimal{}, false
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return decimal.Decimal{}, false
	}

	return amount, true
}
