package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/models"
)

const ordersTable = "uzu_orders"

// Client talks to the PostgREST endpoint in front of the uzu_orders table.
// It is intentionally thin: request shaping and status handling here,
// batching and retry policy in the Sink.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(baseURL, apiKey string, logger *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) tableURL() string {
	return fmt.Sprintf("%s/rest/v1/%s", c.baseURL, ordersTable)
}

func (c *Client) setHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// Upsert posts one batch of rows, merging on the given conflict columns
// (e.g. "order_no,prod_no"), so replays of already-stored rows are no-ops.
func (c *Client) Upsert(ctx context.Context, rows []models.OrderRow, conflictKey string) error {
	if len(rows) == 0 {
		return nil
	}

	u := c.tableURL() + "?on_conflict=" + url.QueryEscape(conflictKey)
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, "resolution=merge-duplicates,return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upsert failed: %d - %s", resp.StatusCode, truncate(string(body), 200))
	}
	return nil
}

// Insert posts one batch of rows without conflict handling. Used by the full
// refresh after DeleteAll has emptied the table.
func (c *Client) Insert(ctx context.Context, rows []models.OrderRow) error {
	if len(rows) == 0 {
		return nil
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.tableURL(), bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("insert failed: %d - %s", resp.StatusCode, truncate(string(body), 200))
	}
	return nil
}

// DeleteAll removes every row. The id=neq.0 filter satisfies PostgREST's
// refusal to delete without a predicate.
func (c *Client) DeleteAll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.tableURL()+"?id=neq.0", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed: %d - %s", resp.StatusCode, truncate(string(body), 200))
	}
	return nil
}

// OrderCodes returns the order_no → order_code mapping for rows whose code
// was assigned by the platform (the o-prefixed ones). When one order carries
// several codes the longest wins; short ones are locally generated fallbacks.
func (c *Client) OrderCodes(ctx context.Context) (map[string]string, error) {
	u := c.tableURL() + "?order_code=like.o*&select=order_no,order_code&limit=2000"

	var rows []struct {
		OrderNo   string `json:"order_no"`
		OrderCode string `json:"order_code"`
	}
	if err := c.get(ctx, u, &rows); err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(rows))
	for _, row := range rows {
		if existing, ok := mapping[row.OrderNo]; !ok || len(row.OrderCode) > len(existing) {
			mapping[row.OrderNo] = row.OrderCode
		}
	}
	return mapping, nil
}

// StoredOrderNos returns the set of order numbers already in the table.
func (c *Client) StoredOrderNos(ctx context.Context) (map[string]bool, error) {
	var rows []struct {
		OrderNo string `json:"order_no"`
	}
	if err := c.get(ctx, c.tableURL()+"?select=order_no", &rows); err != nil {
		return nil, err
	}

	stored := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.OrderNo != "" {
			stored[row.OrderNo] = true
		}
	}
	return stored, nil
}

// SentinelOrderNos returns the distinct order numbers stored with the
// missing-product sentinel name, the candidates for product re-resolution.
func (c *Client) SentinelOrderNos(ctx context.Context) ([]string, error) {
	u := c.tableURL() + "?prod_name=eq." + url.QueryEscape(models.SentinelProductName) + "&select=order_no"

	var rows []struct {
		OrderNo string `json:"order_no"`
	}
	if err := c.get(ctx, u, &rows); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rows))
	var orderNos []string
	for _, row := range rows {
		if row.OrderNo != "" && !seen[row.OrderNo] {
			seen[row.OrderNo] = true
			orderNos = append(orderNos, row.OrderNo)
		}
	}
	return orderNos, nil
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("select failed: %d - %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
