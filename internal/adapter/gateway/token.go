package gateway

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/infrastructure/metrics"
)

// TokenClient implements usecase.TokenGateway against the token custody
// service's HTTP API. TransferIn pulls units into bank custody, TransferOut
// pushes them back; both settle synchronously within the caller's context.
type TokenClient struct {
	client  HTTPDoer
	baseURL string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewTokenClient creates a new TokenClient. A nil client falls back to a
// default with a 10 second timeout.
func NewTokenClient(client HTTPDoer, baseURL string, logger zerolog.Logger, m *metrics.Metrics) *TokenClient {
	return &TokenClient{
		client:  defaultClient(client),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		metrics: m,
	}
}

// TransferIn pulls amount token units from accountID's external holding.
func (c *TokenClient) TransferIn(ctx context.Context, accountID string, amount decimal.Decimal) error {
	return c.call(ctx, "token_in", c.baseURL+"/transfers/in", accountID, amount)
}

// TransferOut pushes amount token units back to accountID's external holding.
func (c *TokenClient) TransferOut(ctx context.Context, accountID string, amount decimal.Decimal) error {
	return c.call(ctx, "token_out", c.baseURL+"/transfers/out", accountID, amount)
}

func (c *TokenClient) call(ctx context.Context, operation, url, accountID string, amount decimal.Decimal) error {
	if c.metrics != nil {
		c.metrics.GatewayRequests.WithLabelValues(operation).Inc()
	}

	if err := postTransfer(ctx, c.client, url, accountID, amount); err != nil {
		if c.metrics != nil {
			c.metrics.GatewayFailures.WithLabelValues(operation).Inc()
		}
		c.logger.Warn().
			Err(err).
			Str("operation", operation).
			Str("account_id", accountID).
			Str("amount", amount.String()).
			Msg("token custody call failed")
		return err
	}

	return nil
}
