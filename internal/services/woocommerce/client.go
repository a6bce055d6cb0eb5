package woocommerce

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/normalize"
	"github.com/noisycontents/uzu-orders/internal/retry"
)

// DefaultPerPage is the page size every collector loop requests.
const DefaultPerPage = 100

const requestTimeout = 30 * time.Second

// Client talks to a WooCommerce store over the wc/v3 REST API.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	logger     *logger.Logger
	policy     retry.Policy
}

// NewClient builds a client for the given store. Credentials go out as HTTP
// basic auth, which wc/v3 accepts over TLS.
func NewClient(siteURL, consumerKey, consumerSecret string, logger *logger.Logger) *Client {
	credentials := base64.StdEncoding.EncodeToString([]byte(consumerKey + ":" + consumerSecret))
	return &Client{
		baseURL:    strings.TrimRight(siteURL, "/") + "/wp-json/wc/v3",
		authHeader: "Basic " + credentials,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		policy: retry.Policy{
			Attempts:  3,
			Backoff:   retry.Constant(time.Second),
			Retryable: retryableStatus,
		},
	}
}

// statusError is a non-200 list response. Throttle and server errors retry;
// auth and validation failures are terminal.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("order list failed: %d - %s", e.status, e.body)
}

func retryableStatus(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return true
}

// ListOrders fetches one page of orders. Zero after/before skip the date
// filter and an empty status means every status. List totals come from the
// X-WP-Total and X-WP-TotalPages headers.
func (c *Client) ListOrders(ctx context.Context, page, perPage int, after, before time.Time, status string) ([]Order, Page, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if status == "" {
		status = "any"
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("status", status)
	params.Set("orderby", "date")
	params.Set("order", "desc")
	if !after.IsZero() {
		params.Set("after", after.In(normalize.Seoul).Format(time.RFC3339))
	}
	if !before.IsZero() {
		params.Set("before", before.In(normalize.Seoul).Format(time.RFC3339))
	}

	var orders []Order
	var pg Page
	err := c.policy.Do(ctx, func() error {
		var attemptErr error
		orders, pg, attemptErr = c.fetchList(ctx, params)
		return attemptErr
	})
	if err != nil {
		return nil, Page{}, err
	}
	return orders, pg, nil
}

func (c *Client) fetchList(ctx context.Context, params url.Values) ([]Order, Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders?"+params.Encode(), nil)
	if err != nil {
		return nil, Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Page{}, fmt.Errorf("failed to fetch orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, Page{}, &statusError{status: resp.StatusCode, body: truncate(string(body), 200)}
	}

	var orders []Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, Page{}, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, parsePage(resp.Header, len(orders)), nil
}

func parsePage(h http.Header, fallback int) Page {
	pg := Page{Total: fallback, TotalPages: 1}
	if v, err := strconv.Atoi(h.Get("X-WP-Total")); err == nil {
		pg.Total = v
	}
	if v, err := strconv.Atoi(h.Get("X-WP-TotalPages")); err == nil {
		pg.TotalPages = v
	}
	return pg
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
