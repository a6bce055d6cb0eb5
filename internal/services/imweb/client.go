package imweb

import (
	"bytes"
	"context"
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
)

// DefaultBaseURL is the hosted commerce API.
const DefaultBaseURL = "https://api.imweb.me/v2"

// ErrRateLimited marks the throttle response the API returns inside HTTP 200.
var ErrRateLimited = errors.New("rate limited")

const (
	listTimeout   = 15 * time.Second
	detailTimeout = 10 * time.Second
	// detailAttempts bounds the retry loop on the per-order endpoints,
	// which fail transiently far more often than the list.
	detailAttempts = 3
)

// Query selects a slice of the order list. Zero fields are omitted from the
// request, so the zero Query means the unfiltered recent list.
type Query struct {
	From   int64  // order_date_from, epoch seconds
	To     int64  // order_date_to, epoch seconds
	Status string // e.g. "cancel"
	Media  string // "normal", "npay", "talkpay"; empty covers all media
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.From > 0 {
		v.Set("order_date_from", strconv.FormatInt(q.From, 10))
	}
	if q.To > 0 {
		v.Set("order_date_to", strconv.FormatInt(q.To, 10))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Media != "" {
		v.Set("type", q.Media)
	}
	return v
}

// Client talks to the order API. List pagination is asymmetric by design:
// the first page is addressed with page=1, later pages with offset=N.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
	onRateLimit func(wait time.Duration)
	sleep       func(time.Duration) // test hook, replaces the context-aware pause
}

// NewClient returns a client for the hosted API.
func NewClient(accessToken string, logger *logger.Logger) *Client {
	return NewClientWith(DefaultBaseURL, accessToken, logger)
}

// NewClientWith points the client at an alternate base URL, for tests.
func NewClientWith(baseURL, accessToken string, logger *logger.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: listTimeout,
		},
		logger: logger,
	}
}

// OnRateLimit registers a callback observing every throttled response before
// the client backs off. The sync pipelines hook run events here.
func (c *Client) OnRateLimit(fn func(wait time.Duration)) {
	c.onRateLimit = fn
}

// Authenticate exchanges an API key/secret pair for an access token.
func Authenticate(ctx context.Context, baseURL, apiKey, secretKey string) (string, error) {
	payload, err := json.Marshal(map[string]string{"key": apiKey, "secret": secretKey})
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(baseURL, "/")+"/auth", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: listTimeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("auth failed: %d - %s", resp.StatusCode, truncate(string(body), 200))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		Msg         string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("auth response carried no access token: %s", out.Msg)
	}
	return out.AccessToken, nil
}

// FirstPage fetches page 1 (at the 100-row cap) for the given filters and
// returns the rows together with the pagination counters, which are the only
// way to learn how many rows the filter matches.
func (c *Client) FirstPage(ctx context.Context, q Query) ([]Order, Pagination, error) {
	v := q.values()
	v.Set("page", "1")
	v.Set("limit", "100")
	v.Set("order_version", "v2")

	var list OrderList
	if err := c.getList(ctx, v, &list); err != nil {
		return nil, Pagination{}, err
	}
	return list.List, list.Pagination, nil
}

// Page fetches one page past the first, addressed with the offset parameter.
func (c *Client) Page(ctx context.Context, q Query, page, pagesize int) ([]Order, error) {
	v := q.values()
	v.Set("offset", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(pagesize))
	v.Set("order_version", "v2")

	var list OrderList
	if err := c.getList(ctx, v, &list); err != nil {
		return nil, err
	}
	return list.List, nil
}

func (c *Client) getList(ctx context.Context, v url.Values, out *OrderList) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/shop/orders?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("order list failed: %d - %s", resp.StatusCode, truncate(string(body), 200))
	}

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.rateLimited() {
		return fmt.Errorf("%w: %s", ErrRateLimited, env.Msg)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode order list: %w", err)
	}
	return nil
}

// Order fetches one order's detail. Missing orders return nil without error.
func (c *Client) Order(ctx context.Context, orderNo string) (*Order, error) {
	u := fmt.Sprintf("%s/shop/orders/%s?order_version=v2", c.baseURL, url.PathEscape(orderNo))

	var last error
	for attempt := 0; attempt < detailAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			c.pause(ctx, 500*time.Millisecond)
		}

		env, status, err := c.getDetail(ctx, u)
		if err != nil {
			last = err
			continue
		}
		if status == http.StatusNotFound {
			return nil, nil
		}
		if status != http.StatusOK {
			last = fmt.Errorf("order fetch failed: %d", status)
			continue
		}
		if env.rateLimited() {
			last = c.backOff(ctx, orderNo, env.Msg, time.Duration(attempt+1)*5*time.Second)
			continue
		}

		var order Order
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &order); err != nil {
				last = fmt.Errorf("failed to decode order: %w", err)
				continue
			}
		}
		if order.OrderNo != "" {
			return &order, nil
		}
		last = nil
		c.pause(ctx, time.Second)
	}
	return nil, last
}

// Products fetches the prod-orders lines for one order and flattens them to
// one entry per item. A 404 and an order with no lines both return nil
// without error; callers store the placeholder row instead.
func (c *Client) Products(ctx context.Context, orderNo string, attempts int) ([]Product, error) {
	if attempts < 1 {
		attempts = detailAttempts
	}
	u := fmt.Sprintf("%s/shop/orders/%s/prod-orders?order_version=v2", c.baseURL, url.PathEscape(orderNo))

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			c.pause(ctx, 500*time.Millisecond)
		}

		env, status, err := c.getDetail(ctx, u)
		if err != nil {
			last = err
			continue
		}
		if status == http.StatusNotFound {
			return nil, nil
		}
		if status != http.StatusOK {
			last = fmt.Errorf("prod-orders failed: %d", status)
			continue
		}
		if env.rateLimited() {
			last = c.backOff(ctx, orderNo, env.Msg, time.Duration(attempt+1)*3*time.Second)
			continue
		}

		var prodOrders []ProdOrder
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &prodOrders); err != nil {
				last = fmt.Errorf("failed to decode prod-orders: %w", err)
				continue
			}
		}
		if products := flattenProducts(prodOrders); len(products) > 0 {
			return products, nil
		}
		last = nil
	}
	return nil, last
}

func (c *Client) getDetail(ctx context.Context, u string) (*apiResponse, int, error) {
	dctx, cancel := context.WithTimeout(ctx, detailTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dctx, "GET", u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return &env, resp.StatusCode, nil
}

// backOff waits out one throttle response and returns the error to record
// for the attempt.
func (c *Client) backOff(ctx context.Context, orderNo, msg string, wait time.Duration) error {
	c.logger.Warn("Rate limited on order %s, waiting %s", orderNo, wait)
	if c.onRateLimit != nil {
		c.onRateLimit(wait)
	}
	c.pause(ctx, wait)
	return fmt.Errorf("%w: %s", ErrRateLimited, msg)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access-token", c.accessToken)
}

func (c *Client) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if c.sleep != nil {
		c.sleep(d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
