package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iho/tokenbank/internal/domain"
	"github.com/iho/tokenbank/internal/infrastructure/auth"
)

var (
	baseURL   string
	timeout   time.Duration
	authToken string
	accountID string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tokenbank-cli",
		Short: "TokenBank CLI tool",
		Long:  `A command line interface for interacting with the TokenBank API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the TokenBank API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer token (overrides --account)")
	rootCmd.PersistentFlags().StringVar(&accountID, "account", "", "Account ID header for servers running with auth disabled")

	rootCmd.AddCommand(
		balancesCmd(),
		capacityCmd(),
		operationsCmd(),
		depositCmd(),
		withdrawCmd(),
		receiptCmd(),
		convertCmd(),
		statsCmd(),
		consistencyCmd(),
		oracleCmd(),
		tokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show the caller's balances",
		Run: func(cmd *cobra.Command, args []string) {
			call(http.MethodGet, "/api/v1/balances/me", nil)
		},
	}
}

func capacityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capacity",
		Short: "Show remaining deposit capacity",
		Run: func(cmd *cobra.Command, args []string) {
			call(http.MethodGet, "/api/v1/capacity", nil)
		},
	}
}

func operationsCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "operations [id]",
		Short: "List the caller's operations, or show one by ID",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 1 {
				call(http.MethodGet, "/api/v1/operations/"+url.PathEscape(args[0]), nil)
				return
			}
			call(http.MethodGet, fmt.Sprintf("/api/v1/operations?limit=%d&offset=%d", limit, offset), nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

func depositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit into the caller's account",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "native <amount>",
			Short: "Deposit native units",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodPost, "/api/v1/deposits/native", amountPayload(args[0]))
			},
		},
		&cobra.Command{
			Use:   "token <amount>",
			Short: "Deposit token units",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodPost, "/api/v1/deposits/token", amountPayload(args[0]))
			},
		},
	)
	return cmd
}

func withdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw from the caller's account",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "native <amount>",
			Short: "Withdraw native units",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodPost, "/api/v1/withdrawals/native", amountPayload(args[0]))
			},
		},
		&cobra.Command{
			Use:   "token <amount>",
			Short: "Withdraw token units",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodPost, "/api/v1/withdrawals/token", amountPayload(args[0]))
			},
		},
	)
	return cmd
}

func receiptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <account> <amount>",
		Short: "Post a native settlement receipt for an account (operator)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			call(http.MethodPost, "/api/v1/receipts/native", map[string]string{
				"account_id": args[0],
				"amount":     args[1],
			})
		},
	}
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Quote conversions at the current oracle price",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "to-native <token-amount>",
			Short: "Quote the native value of a token amount",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodGet, "/api/v1/convert/token-to-native?amount="+url.QueryEscape(args[0]), nil)
			},
		},
		&cobra.Command{
			Use:   "to-token <native-amount>",
			Short: "Quote the token value of a native amount",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodGet, "/api/v1/convert/native-to-token?amount="+url.QueryEscape(args[0]), nil)
			},
		},
	)
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Bank statistics (admin)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "bank",
			Short: "Capacity, limits and totals",
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodGet, "/api/v1/admin/statistics/bank", nil)
			},
		},
		&cobra.Command{
			Use:   "transactions",
			Short: "Deposit and withdrawal counts",
			Run: func(cmd *cobra.Command, args []string) {
				call(http.MethodGet, "/api/v1/admin/statistics/transactions", nil)
			},
		},
	)
	return cmd
}

func consistencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency (admin)",
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency()
		},
	}
}

func oracleCmd() *cobra.Command {
	var kind, price, feedURL, symbol string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the oracle feed (admin)",
		Run: func(cmd *cobra.Command, args []string) {
			payload := map[string]string{"kind": kind}
			if price != "" {
				payload["price"] = price
			}
			if feedURL != "" {
				payload["url"] = feedURL
			}
			if symbol != "" {
				payload["symbol"] = symbol
			}
			call(http.MethodPut, "/api/v1/admin/oracle", payload)
		},
	}
	setCmd.Flags().StringVar(&kind, "kind", "static", "Feed kind: static, http or binance")
	setCmd.Flags().StringVar(&price, "price", "", "Fixed price for static feeds")
	setCmd.Flags().StringVar(&feedURL, "feed-url", "", "Endpoint for http feeds")
	setCmd.Flags().StringVar(&symbol, "symbol", "", "Ticker symbol for binance feeds")

	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Oracle feed operations",
	}
	cmd.AddCommand(setCmd)
	return cmd
}

func tokenCmd() *cobra.Command {
	var secret, account, role string
	var ttl time.Duration
	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := mintToken(secret, account, role, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	mintCmd.Flags().StringVar(&secret, "secret", "", "Signing secret (must match the server's JWT_SECRET)")
	mintCmd.Flags().StringVar(&account, "account", "dev", "Account ID to embed")
	mintCmd.Flags().StringVar(&role, "role", string(domain.RoleViewer), "Role: admin, operator or viewer")
	mintCmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Credential helpers",
	}
	cmd.AddCommand(mintCmd)
	return cmd
}

// call performs the request and prints the JSON response. A transport error
// or a non-2xx status exits nonzero.
func call(method, path string, payload any) {
	raw, status, err := newAPIClient().do(method, path, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(os.Stdout, raw)
	if status < 200 || status >= 300 {
		fmt.Fprintf(os.Stderr, "status %d\n", status)
		os.Exit(1)
	}
}

func checkConsistency() {
	raw, status, err := newAPIClient().do(http.MethodGet, "/api/v1/admin/consistency", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(1)
	}
	if status != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\nResponse: %s\n", status, string(raw))
		os.Exit(1)
	}

	var report struct {
		Consistent bool   `json:"consistent"`
		Difference string `json:"difference"`
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse response: %v\n", err)
		os.Exit(1)
	}
	if !report.Consistent {
		fmt.Printf("Consistency check FAILED\nDifference: %s\n", report.Difference)
		os.Exit(1)
	}
	fmt.Println("Consistency check PASSED")
}

// apiClient wraps the HTTP plumbing shared by every command.
type apiClient struct {
	baseURL   string
	client    *http.Client
	authToken string
	accountID string
}

func newAPIClient() *apiClient {
	return &apiClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		authToken: authToken,
		accountID: accountID,
	}
}

func (c *apiClient) do(method, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	} else if c.accountID != "" {
		req.Header.Set("X-Account-ID", c.accountID)
	}
	// Every mutating call carries a fresh key; rerunning a failed command is
	// then safe on the server side.
	if method == http.MethodPost || method == http.MethodPut {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

func amountPayload(amount string) map[string]string {
	return map[string]string{"amount": amount}
}

// printJSON pretty-prints a JSON body, or echoes it verbatim when it is not JSON.
func printJSON(w io.Writer, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(w, string(raw))
		return
	}
	fmt.Fprintln(w, buf.String())
}

// mintToken signs a credential for the given account and role. The server
// only accepts it when its JWT_SECRET matches the signing secret.
func mintToken(secret, account, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("a signing secret is required")
	}
	r := domain.Role(role)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	mgr := auth.NewJWTManager(secret, ttl)
	return mgr.Generate(&domain.User{ID: account, Role: r})
}
