package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noisycontents/uzu-orders/internal/config"
	"github.com/noisycontents/uzu-orders/internal/events"
	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/models"
)

type captureReporter struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureReporter) Report(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureReporter) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func testConfig(supabaseURL string) *config.Config {
	return &config.Config{
		SupabaseURL:      supabaseURL,
		SupabaseKey:      "key",
		ImwebAccessToken: "token",
		WooTargetProduct: 237513,
		ImwebBatchSize:   10,
		CSVBatchSize:     50,
		MaxRetries:       3,
	}
}

func newTestRunner(cfg *config.Config, imwebURL string, reporter events.Reporter) *Runner {
	r := New(cfg, reporter, logger.New("error"))
	if imwebURL != "" {
		r.imwebBaseURL = imwebURL
	}
	r.detailPause = 0
	r.now = func() time.Time {
		return time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	}
	return r
}

// storeServer fakes the PostgREST table: it captures upserted rows and
// serves canned select responses.
type storeServer struct {
	mu       sync.Mutex
	upserts  [][]models.OrderRow
	conflict []string
	selects  map[string]string // raw query fragment -> JSON body
}

func (s *storeServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var rows []models.OrderRow
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.mu.Lock()
			s.upserts = append(s.upserts, rows)
			s.conflict = append(s.conflict, r.URL.Query().Get("on_conflict"))
			s.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			return
		}
		for fragment, body := range s.selects {
			if strings.Contains(r.URL.RawQuery, fragment) {
				w.Write([]byte(body))
				return
			}
		}
		w.Write([]byte("[]"))
	}
}

func (s *storeServer) rows() []models.OrderRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.OrderRow
	for _, batch := range s.upserts {
		all = append(all, batch...)
	}
	return all
}

func listBody(t *testing.T, count int, orders ...map[string]interface{}) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"code": 1,
		"data": map[string]interface{}{
			"list": orders,
			"pagenation": map[string]interface{}{
				"data_count": count, "pagesize": 100, "total_page": 1, "current_page": 1,
			},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func TestRunImwebSingleDate(t *testing.T) {
	store := &storeServer{}
	storeSrv := httptest.NewServer(store.handler())
	defer storeSrv.Close()

	order1 := map[string]interface{}{"order_code": "o100", "order_no": "100", "order_time": 1740000000}
	order2 := map[string]interface{}{"order_code": "o200", "order_no": "200", "order_time": 1740000100}

	imwebSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/shop/orders":
			w.Write([]byte(listBody(t, 2, order1, order2)))
		case r.URL.Path == "/shop/orders/100/prod-orders":
			w.Write([]byte(`{"code":1,"data":[{"status":"COMPLETE","items":[
				{"prod_no":"111","prod_name":"독일어 마스터","payment":{"count":2,"price":39000,"price_sale":0}}]}]}`))
		case r.URL.Path == "/shop/orders/200/prod-orders":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer imwebSrv.Close()

	reporter := &captureReporter{}
	runner := newTestRunner(testConfig(storeSrv.URL), imwebSrv.URL, reporter)

	res, err := runner.Run(context.Background(), ModeImwebSingleDate, Options{Date: "2025-03-01"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Collected)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, 2, res.Stored)
	require.Zero(t, res.FailedBatches)

	rows := store.rows()
	require.Len(t, rows, 2)
	require.Equal(t, "111", rows[0].ProdNo)
	require.Equal(t, 2, rows[0].ProdQuantity)
	// Order 200 lost its product lookup and keeps the placeholder.
	require.Equal(t, models.SentinelProductName, rows[1].ProdName)
	require.Equal(t, 1, rows[1].ProdQuantity)
	require.Equal(t, "order_no,prod_no", store.conflict[0])

	require.Equal(t, []string{events.TypeRunStarted, events.TypeRunFinished}, reporter.types())
	require.NotEmpty(t, res.RunID)
}

func TestRunRecoverCSVFetchesOnlyMissingOrders(t *testing.T) {
	store := &storeServer{selects: map[string]string{
		"select=order_no": `[{"order_no":"100"}]`,
	}}
	storeSrv := httptest.NewServer(store.handler())
	defer storeSrv.Close()

	var fetched []string
	imwebSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shop/orders/200":
			fetched = append(fetched, "200")
			w.Write([]byte(`{"code":1,"data":{"order_code":"o200","order_no":"200","order_time":1740000100}}`))
		case "/shop/orders/200/prod-orders":
			w.Write([]byte(`{"code":1,"data":[{"status":"COMPLETE","items":[
				{"prod_no":"111","prod_name":"독일어 마스터","payment":{"price":39000}}]}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer imwebSrv.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(file, []byte("주문번호,상품명\n100,A\n200,B\n200,B\n"), 0o644))

	runner := newTestRunner(testConfig(storeSrv.URL), imwebSrv.URL, events.NopReporter{})
	res, err := runner.Run(context.Background(), ModeRecoverCSV, Options{File: file})
	require.NoError(t, err)

	require.Equal(t, []string{"200"}, fetched)
	require.Equal(t, 1, res.Collected)
	require.Equal(t, 1, res.Stored)
	rows := store.rows()
	require.Len(t, rows, 1)
	require.Equal(t, "200", rows[0].OrderNo)
}

func TestRunCSVWoocommerceUsesCodeConflictKey(t *testing.T) {
	store := &storeServer{}
	storeSrv := httptest.NewServer(store.handler())
	defer storeSrv.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "export.csv")
	csv := "Order Number,Order Status,Paid Date,Full Name (Billing),Customer User Email,Phone (Billing),Item Name,Quantity,Item Cost,Discount Amount\n" +
		"5001,completed,2025-01-24 16:39,Anna Schmidt,anna@example.com,491701234567,Deutschkurs,1,49000,1000\n"
	require.NoError(t, os.WriteFile(file, []byte(csv), 0o644))

	runner := newTestRunner(testConfig(storeSrv.URL), "", events.NopReporter{})
	res, err := runner.Run(context.Background(), ModeCSVWoocommerce, Options{File: file})
	require.NoError(t, err)
	require.Equal(t, 1, res.Stored)

	require.Equal(t, "order_code,prod_no", store.conflict[0])
	rows := store.rows()
	require.Equal(t, "w5001", rows[0].OrderCode)
	require.Equal(t, "237513", rows[0].ProdNo)
	require.Equal(t, "+49701234567", rows[0].OrdererPhone)
}

func TestRunFullRefreshRequiresConfirmation(t *testing.T) {
	runner := newTestRunner(testConfig("http://supabase.test"), "", events.NopReporter{})
	_, err := runner.Run(context.Background(), ModeFullRefresh, Options{})
	require.ErrorIs(t, err, ErrConfirmRequired)
}

func TestRunRejectsUnknownMode(t *testing.T) {
	runner := newTestRunner(testConfig("http://supabase.test"), "", events.NopReporter{})
	res, err := runner.Run(context.Background(), "bogus", Options{})
	require.Error(t, err)
	require.Zero(t, res.Stored)
}

func TestRunValidatesCredentialsBeforeAnyCall(t *testing.T) {
	cfg := testConfig("")
	runner := newTestRunner(cfg, "", events.NopReporter{})
	_, err := runner.Run(context.Background(), ModeImwebDaily, Options{})
	require.ErrorContains(t, err, "SUPABASE_URL")

	cfg = testConfig("http://supabase.test")
	cfg.ImwebAccessToken = ""
	runner = newTestRunner(cfg, "", events.NopReporter{})
	_, err = runner.Run(context.Background(), ModeImwebDaily, Options{})
	require.ErrorContains(t, err, "imweb credentials")
}
