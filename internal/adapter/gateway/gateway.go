package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxResponseBodyBytes = 1 << 16

type transferRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
}

type transferResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// postTransfer issues one settlement call. Anything short of a 2xx with an
// affirmative body counts as a rejection.
func postTransfer(ctx context.Context, client HTTPDoer, url, accountID string, amount decimal.Decimal) error {
	payload, err := json.Marshal(transferRequest{AccountID: accountID, Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("encode transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result transferResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodyBytes)).Decode(&result); err != nil {
		return fmt.Errorf("decode %s response: %w", url, err)
	}
	if !result.OK {
		if result.Reason == "" {
			result.Reason = "no reason given"
		}
		return fmt.Errorf("%s rejected transfer: %s", url, result.Reason)
	}

	return nil
}

func defaultClient(client HTTPDoer) HTTPDoer {
	if client == nil {
		return &http.Client{Timeout: 10 * time.Second}
	}
	return client
}
