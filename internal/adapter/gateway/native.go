package gateway

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tokenbank/internal/infrastructure/metrics"
)

// NativeClient implements usecase.NativeGateway against the native
// settlement service's HTTP API.
type NativeClient struct {
	client  HTTPDoer
	baseURL string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewNativeClient creates a new NativeClient. A nil client falls back to a
// default with a 10 second timeout.
func NewNativeClient(client HTTPDoer, baseURL string, logger zerolog.Logger, m *metrics.Metrics) *NativeClient {
	return &NativeClient{
		client:  defaultClient(client),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		metrics: m,
	}
}

// Send pays amount native units out to accountID.
func (c *NativeClient) Send(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if c.metrics != nil {
		c.metrics.GatewayRequests.WithLabelValues("native_send").Inc()
	}

	if err := postTransfer(ctx, c.client, c.baseURL+"/payouts", accountID, amount); err != nil {
		if c.metrics != nil {
			c.metrics.GatewayFailures.WithLabelValues("native_send").Inc()
		}
		c.logger.Warn().
			Err(err).
			Str("account_id", accountID).
			Str("amount", amount.String()).
			Msg("native payout failed")
		return err
	}

	return nil
}
