package woocommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noisycontents/uzu-orders/internal/normalize"
)

const testProduct = int64(237513)

func newTestCollector(srv *httptest.Server) *Collector {
	return NewCollector(newTestClient(srv), testProduct, testLogger())
}

func targetOrder(id int64, paid string) map[string]interface{} {
	o := orderFixture(id)
	o["date_paid"] = paid
	return o
}

func offTargetOrder(id int64) map[string]interface{} {
	o := orderFixture(id)
	o["line_items"] = []map[string]interface{}{
		{"product_id": 111, "name": "다른 상품", "quantity": 1, "total": "10.00"},
	}
	return o
}

func orderIDs(orders []Order) []int64 {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestWindowPaginatesUntilLastPage(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		w.Header().Set("X-WP-TotalPages", "2")
		if page == "1" {
			writeOrders(t, w, orderFixture(1), orderFixture(2))
			return
		}
		writeOrders(t, w, orderFixture(3))
	}))
	defer srv.Close()

	orders, err := newTestCollector(srv).Window(context.Background(), time.Time{}, time.Time{}, "")

	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, orderIDs(orders))
	require.Equal(t, []string{"1", "2"}, pages)
}

func TestWindowStopsOnEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "5")
		if r.URL.Query().Get("page") == "1" {
			writeOrders(t, w, orderFixture(1))
			return
		}
		writeOrders(t, w)
	}))
	defer srv.Close()

	orders, err := newTestCollector(srv).Window(context.Background(), time.Time{}, time.Time{}, "")

	require.NoError(t, err)
	require.Equal(t, []int64{1}, orderIDs(orders))
}

func TestDailyFiltersTargetAndPaymentWindow(t *testing.T) {
	now := time.Date(2025, 3, 5, 1, 0, 0, 0, normalize.Seoul)

	var gotAfter, gotBefore string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") == "cancelled" {
			writeOrders(t, w, targetOrder(50, "2025-03-01T12:00:00"))
			return
		}
		gotAfter = q.Get("after")
		gotBefore = q.Get("before")
		writeOrders(t, w,
			// paid inside the window
			targetOrder(10, "2025-03-04T10:00:00"),
			// right product, paid before the window opens
			targetOrder(11, "2025-03-03T22:00:00"),
			// paid 2025-03-05 05:00 KST once the UTC offset applies
			targetOrder(12, "2025-03-04T20:00:00Z"),
			// window-inside payment but no target product
			offTargetOrder(13),
		)
	}))
	defer srv.Close()

	orders, err := newTestCollector(srv).Daily(context.Background(), now)

	require.NoError(t, err)
	require.Equal(t, []int64{10, 50}, orderIDs(orders))
	require.Equal(t, "2025-03-03T23:00:00+09:00", gotAfter)
	require.Equal(t, "2025-03-05T00:00:00+09:00", gotBefore)
}

func TestSingleDateSkipsPaymentFilter(t *testing.T) {
	now := time.Date(2025, 3, 5, 1, 0, 0, 0, normalize.Seoul)

	var gotAfter, gotBefore string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") == "cancelled" {
			writeOrders(t, w)
			return
		}
		gotAfter = q.Get("after")
		gotBefore = q.Get("before")
		// paid long after the requested day; kept anyway
		writeOrders(t, w, targetOrder(20, "2025-04-01T00:00:00"), offTargetOrder(21))
	}))
	defer srv.Close()

	orders, err := newTestCollector(srv).SingleDate(context.Background(), "2025-03-01", now)

	require.NoError(t, err)
	require.Equal(t, []int64{20}, orderIDs(orders))
	require.Equal(t, "2025-03-01T00:00:00+09:00", gotAfter)
	require.Equal(t, "2025-03-01T23:59:59+09:00", gotBefore)
}

func TestDailySurvivesCancelSweepFailure(t *testing.T) {
	now := time.Date(2025, 3, 5, 1, 0, 0, 0, normalize.Seoul)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "cancelled" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeOrders(t, w, targetOrder(30, "2025-03-04T10:00:00"))
	}))
	defer srv.Close()

	orders, err := newTestCollector(srv).Daily(context.Background(), now)

	require.NoError(t, err)
	require.Equal(t, []int64{30}, orderIDs(orders))
}

func TestRecentCancelledCoversTrailingMonth(t *testing.T) {
	now := time.Date(2025, 3, 5, 13, 30, 0, 0, normalize.Seoul)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "cancelled", q.Get("status"))
		require.Equal(t, "2025-02-03T13:30:00+09:00", q.Get("after"))
		require.Equal(t, "2025-03-05T13:30:00+09:00", q.Get("before"))
		writeOrders(t, w, orderFixture(40))
	}))
	defer srv.Close()

	orders, err := newTestCollector(srv).RecentCancelled(context.Background(), now)

	require.NoError(t, err)
	require.Equal(t, []int64{40}, orderIDs(orders))
}
