package imweb

import (
	"context"
	"fmt"
	"time"

	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/normalize"
	"github.com/noisycontents/uzu-orders/internal/retry"
)

// mediaTypes are the list filters tried when one day overflows the page cap.
// The empty entry queries all media at once; the per-media slices catch rows
// the combined listing drops.
var mediaTypes = []string{"", "normal", "npay", "talkpay"}

const (
	// backfillDayCap bounds a full backfill to one year of day sweeps.
	backfillDayCap = 365
	pagePause      = 80 * time.Millisecond
	bucketPause    = 100 * time.Millisecond
)

// Collector gathers orders from the list endpoint using the splitting and
// retry tactics the API's 100-row page cap forces: day by day, then by media
// type, then by hour bucket.
type Collector struct {
	client     *Client
	logger     *logger.Logger
	pagePolicy retry.Policy
	sleep      func(time.Duration) // test hook, replaces the context-aware pause
}

func NewCollector(client *Client, logger *logger.Logger) *Collector {
	return &Collector{
		client: client,
		logger: logger,
		pagePolicy: retry.Policy{
			Attempts: 3,
			Backoff:  retry.Constant(time.Second),
		},
	}
}

// SingleDate collects every order of one KST calendar day. Days above the
// page cap are split by media type, and any media slice still above the cap
// is re-read in 3-hour buckets.
func (col *Collector) SingleDate(ctx context.Context, date string) ([]Order, error) {
	day, err := time.ParseInLocation("2006-01-02", date, normalize.Seoul)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	q := Query{From: day.Unix(), To: day.AddDate(0, 0, 1).Unix() - 1}
	first, pgn, err := col.client.FirstPage(ctx, q)
	if err != nil {
		return nil, err
	}
	expected := int(pgn.DataCount)
	if expected == 0 {
		return nil, nil
	}
	if expected <= 100 {
		return first, nil
	}

	col.logger.Info("%s holds %d orders, splitting by media", date, expected)
	var all []Order
	for _, media := range mediaTypes {
		mq := q
		mq.Media = media
		orders, err := col.collectMedia(ctx, day, mq)
		if err != nil {
			if ctx.Err() != nil {
				return DedupByOrderNo(all), err
			}
			col.logger.Warn("Media %q failed on %s: %v", media, date, err)
			continue
		}
		all = append(all, orders...)
	}

	unique := DedupByOrderNo(all)
	if len(unique)*10 < expected*9 {
		col.logger.Warn("Short collection on %s: %d/%d orders", date, len(unique), expected)
	}
	return unique, nil
}

// collectMedia reads one media slice of a day: straight pagination when it
// fits the cap, first pages of 3-hour buckets when it does not.
func (col *Collector) collectMedia(ctx context.Context, day time.Time, q Query) ([]Order, error) {
	first, pgn, err := col.client.FirstPage(ctx, q)
	if err != nil {
		return nil, err
	}
	total := int(pgn.DataCount)
	if total == 0 {
		return nil, nil
	}

	if total > 100 {
		var orders []Order
		for hour := 0; hour < 24; hour += 3 {
			bq := q
			bq.From, bq.To = bucketBounds(day, hour, 3)
			bucket, _, err := col.client.FirstPage(ctx, bq)
			if err != nil {
				if ctx.Err() != nil {
					return orders, err
				}
				col.logger.Warn("Bucket %02d-%02dh failed: %v", hour, hour+3, err)
				continue
			}
			orders = append(orders, bucket...)
			col.pause(ctx, bucketPause)
		}
		return orders, nil
	}

	orders := first
	for page := 2; page <= pgn.Pages(); page++ {
		cur, err := col.client.Page(ctx, q, page, pgn.PageSize())
		if err != nil {
			return orders, err
		}
		orders = append(orders, cur...)
		col.pause(ctx, bucketPause)
	}
	return orders, nil
}

// Range collects orders day by day between two KST instants, inclusive of
// both calendar days. Each day is widened by 60s on both sides against clock
// skew, pages are retried, and a day that still comes back short of its
// advertised count is re-read in hour buckets.
func (col *Collector) Range(ctx context.Context, start, end time.Time) ([]Order, error) {
	cursor := midnight(start)
	last := midnight(end)

	var all []Order
	for !cursor.After(last) {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		date := cursor.Format("2006-01-02")

		dayOrders, err := col.collectDay(ctx, cursor, date)
		if err != nil {
			if ctx.Err() != nil {
				return all, err
			}
			col.logger.Warn("Day %s failed: %v", date, err)
		}
		if len(dayOrders) > 0 {
			col.logger.Info("Day %s: %d orders", date, len(dayOrders))
			all = append(all, dayOrders...)
		}

		cursor = cursor.AddDate(0, 0, 1)
		col.pause(ctx, pagePause)
	}
	return all, nil
}

func (col *Collector) collectDay(ctx context.Context, day time.Time, date string) ([]Order, error) {
	from, to, err := normalize.DayRange(date)
	if err != nil {
		return nil, err
	}
	q := Query{From: from, To: to}

	first, pgn, err := col.client.FirstPage(ctx, q)
	if err != nil {
		return nil, err
	}
	total := int(pgn.DataCount)
	if total == 0 {
		return nil, nil
	}

	dayOrders := first
	for page := 2; page <= pgn.Pages(); page++ {
		var cur []Order
		err := col.pagePolicy.Do(ctx, func() error {
			var perr error
			cur, perr = col.client.Page(ctx, q, page, pgn.PageSize())
			return perr
		})
		if err != nil {
			if ctx.Err() != nil {
				return dayOrders, err
			}
			col.logger.Warn("Page %d of %s abandoned: %v", page, date, err)
			break
		}
		if len(cur) == 0 {
			break
		}
		dayOrders = append(dayOrders, cur...)
		col.pause(ctx, pagePause)
	}

	if len(dayOrders) != total {
		col.logger.Warn("Day %s short: %d of %d orders", date, len(dayOrders), total)
		if total >= 100 && len(dayOrders)*10 < total*9 {
			hourly, herr := col.byHour(ctx, day)
			if herr != nil {
				return dayOrders, herr
			}
			if len(hourly) > len(dayOrders) {
				col.logger.Info("Hour buckets recovered %d orders for %s", len(hourly), date)
				dayOrders = hourly
			}
		}
	}
	return dayOrders, nil
}

// byHour re-reads one day in 4-hour buckets with full pagination, the slow
// path for days the plain pagination cannot fully serve.
func (col *Collector) byHour(ctx context.Context, day time.Time) ([]Order, error) {
	var all []Order
	for hour := 0; hour < 24; hour += 4 {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		q := Query{}
		q.From, q.To = bucketBounds(day, hour, 4)

		first, pgn, err := col.client.FirstPage(ctx, q)
		if err != nil {
			col.logger.Warn("Bucket %02d-%02dh failed: %v", hour, hour+4, err)
			continue
		}
		if pgn.DataCount == 0 {
			continue
		}

		bucket := first
		for page := 2; page <= pgn.Pages(); page++ {
			cur, err := col.client.Page(ctx, q, page, pgn.PageSize())
			if err != nil {
				if ctx.Err() != nil {
					return all, err
				}
				col.logger.Warn("Bucket %02d-%02dh page %d failed: %v", hour, hour+4, page, err)
				break
			}
			if len(cur) == 0 {
				break
			}
			bucket = append(bucket, cur...)
			col.pause(ctx, pagePause)
		}
		all = append(all, bucket...)
	}
	return all, nil
}

// Daily collects the rolling 25-hour window ending at today's KST midnight,
// then sweeps the last 30 days for cancelled orders so status flips reach
// the table. Freshly collected rows win the merge; the cancel sweep only
// adds orders the window missed.
func (col *Collector) Daily(ctx context.Context, now time.Time) ([]Order, error) {
	start, end := normalize.DailyWindow(now)
	col.logger.Info("Daily window %s ~ %s (KST)",
		start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))

	orders, err := col.Range(ctx, start, end)
	if err != nil {
		return orders, err
	}

	cancelled, err := col.RecentCancelled(ctx, now)
	if err != nil {
		if ctx.Err() != nil {
			return orders, err
		}
		col.logger.Warn("Cancelled sweep failed: %v", err)
	}
	return DedupByOrderNo(append(orders, cancelled...)), nil
}

// RecentCancelled fetches one page of orders cancelled in the last 30 days.
func (col *Collector) RecentCancelled(ctx context.Context, now time.Time) ([]Order, error) {
	to := now.In(normalize.Seoul)
	from := to.AddDate(0, 0, -30)

	orders, pgn, err := col.client.FirstPage(ctx, Query{
		From:   from.Unix(),
		To:     to.Unix(),
		Status: "cancel",
	})
	if err != nil {
		return nil, err
	}
	if total := int(pgn.DataCount); total > len(orders) {
		col.logger.Warn("Cancelled sweep capped: %d of %d orders", len(orders), total)
	}
	return orders, nil
}

// Backfill collects every day from start to now, one SingleDate sweep per
// day, capped at a year. The result is deduplicated across days.
func (col *Collector) Backfill(ctx context.Context, start, now time.Time) ([]Order, error) {
	cursor := midnight(start)
	end := now.In(normalize.Seoul)

	var all []Order
	for days := 0; !cursor.After(end); days++ {
		if days >= backfillDayCap {
			col.logger.Warn("Backfill capped at %d days", days)
			break
		}
		date := cursor.Format("2006-01-02")
		orders, err := col.SingleDate(ctx, date)
		if err != nil {
			if ctx.Err() != nil {
				return DedupByOrderNo(all), err
			}
			col.logger.Warn("Day %s failed: %v", date, err)
		}
		if len(orders) > 0 {
			col.logger.Info("Day %s: %d orders", date, len(orders))
			all = append(all, orders...)
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return DedupByOrderNo(all), nil
}

// Recent walks the unfiltered order list page by page until it runs out.
// The API only serves roughly the last three months this way.
func (col *Collector) Recent(ctx context.Context) ([]Order, error) {
	first, pgn, err := col.client.FirstPage(ctx, Query{})
	if err != nil {
		return nil, err
	}

	all := first
	for page := 2; page <= pgn.Pages(); page++ {
		cur, err := col.client.Page(ctx, Query{}, page, pgn.PageSize())
		if err != nil {
			if ctx.Err() != nil {
				return all, err
			}
			col.logger.Warn("Page %d failed: %v", page, err)
			break
		}
		if len(cur) == 0 {
			break
		}
		all = append(all, cur...)
	}
	return all, nil
}

// DedupByOrderNo keeps the first occurrence of each order number and drops
// rows without one, so the primary sweep shadows duplicates from later
// sources.
func DedupByOrderNo(orders []Order) []Order {
	seen := make(map[string]bool, len(orders))
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		no := string(o.OrderNo)
		if no == "" || seen[no] {
			continue
		}
		seen[no] = true
		out = append(out, o)
	}
	return out
}

// bucketBounds returns the epoch bounds of an intra-day bucket starting at
// startHour and spanning span hours, clipped to the day's end.
func bucketBounds(day time.Time, startHour, span int) (int64, int64) {
	from := day.Add(time.Duration(startHour) * time.Hour).Unix()
	endHour := startHour + span
	if endHour >= 24 {
		return from, day.AddDate(0, 0, 1).Unix() - 1
	}
	return from, day.Add(time.Duration(endHour)*time.Hour).Unix() - 1
}

func midnight(t time.Time) time.Time {
	kst := t.In(normalize.Seoul)
	return time.Date(kst.Year(), kst.Month(), kst.Day(), 0, 0, 0, 0, normalize.Seoul)
}

func (col *Collector) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if col.sleep != nil {
		col.sleep(d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
