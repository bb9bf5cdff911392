package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/tokenbank/internal/adapter/gateway"
)

type capturedCall struct {
	Path      string
	AccountID string
	Amount    string
}

// newCustodyStub answers every transfer with the given status and body and
// records what it was asked.
func newCustodyStub(t *testing.T, status int, body string) (*httptest.Server, *[]capturedCall) {
	t.Helper()

	var calls []capturedCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			AccountID string `json:"account_id"`
			Amount    string `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls = append(calls, capturedCall{Path: r.URL.Path, AccountID: req.AccountID, Amount: req.Amount})

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))

	return server, &calls
}

func TestTokenClient_TransferIn(t *testing.T) {
	server, calls := newCustodyStub(t, http.StatusOK, `{"ok": true}`)
	defer server.Close()

	client := gateway.NewTokenClient(server.Client(), server.URL, zerolog.Nop(), nil)

	err := client.TransferIn(context.Background(), "acc-1", decimal.NewFromInt(100))
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/transfers/in", call.Path)
	assert.Equal(t, "acc-1", call.AccountID)
	assert.Equal(t, "100", call.Amount)
}

func TestTokenClient_TransferOut(t *testing.T) {
	server, calls := newCustodyStub(t, http.StatusOK, `{"ok": true}`)
	defer server.Close()

	client := gateway.NewTokenClient(server.Client(), server.URL, zerolog.Nop(), nil)

	err := client.TransferOut(context.Background(), "acc-2", decimal.NewFromInt(35))
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/transfers/out", (*calls)[0].Path)
}

func TestTokenClient_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "explicit rejection", status: http.StatusOK, body: `{"ok": false, "reason": "holding frozen"}`},
		{name: "rejection without a reason", status: http.StatusOK, body: `{"ok": false}`},
		{name: "server error", status: http.StatusInternalServerError, body: `boom`},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{"ok": false}`},
		{name: "empty body", status: http.StatusOK, body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newCustodyStub(t, tt.status, tt.body)
			defer server.Close()

			client := gateway.NewTokenClient(server.Client(), server.URL, zerolog.Nop(), nil)

			err := client.TransferIn(context.Background(), "acc-1", decimal.NewFromInt(100))
			require.Error(t, err)
		})
	}
}

func TestTokenClient_Unreachable(t *testing.T) {
	server, _ := newCustodyStub(t, http.StatusOK, `{"ok": true}`)
	url := server.URL
	server.Close()

	client := gateway.NewTokenClient(nil, url, zerolog.Nop(), nil)

	err := client.TransferIn(context.Background(), "acc-1", decimal.NewFromInt(100))
	require.Error(t, err)
}

func TestNativeClient_Send(t *testing.T) {
	server, calls := newCustodyStub(t, http.StatusOK, `{"ok": true}`)
	defer server.Close()

	client := gateway.NewNativeClient(server.Client(), server.URL, zerolog.Nop(), nil)

	err := client.Send(context.Background(), "acc-1", decimal.NewFromInt(40))
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/payouts", call.Path)
	assert.Equal(t, "40", call.Amount)
}

func TestNativeClient_SendRejected(t *testing.T) {
	server, _ := newCustodyStub(t, http.StatusBadGateway, `settlement offline`)
	defer server.Close()

	client := gateway.NewNativeClient(server.Client(), server.URL, zerolog.Nop(), nil)

	err := client.Send(context.Background(), "acc-1", decimal.NewFromInt(40))
	require.Error(t, err)
}

func TestClientsTrimTrailingSlash(t *testing.T) {
	server, calls := newCustodyStub(t, http.StatusOK, `{"ok": true}`)
	defer server.Close()

	client := gateway.NewTokenClient(server.Client(), server.URL+"/", zerolog.Nop(), nil)

	err := client.TransferIn(context.Background(), "acc-1", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "/transfers/in", (*calls)[0].Path)
}
