package woocommerce

import (
	"context"
	"fmt"
	"time"

	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/normalize"
)

// Collector pulls store orders for the sync windows. Cancelled orders of the
// trailing month ride along after the fresh collection, so the row dedup
// keeps the cancelled version of any order seen in both.
type Collector struct {
	client        *Client
	logger        *logger.Logger
	targetProduct int64
}

func NewCollector(client *Client, targetProduct int64, logger *logger.Logger) *Collector {
	return &Collector{client: client, targetProduct: targetProduct, logger: logger}
}

// Window pages through every order of the given status in [after, before].
func (c *Collector) Window(ctx context.Context, after, before time.Time, status string) ([]Order, error) {
	var all []Order
	for page := 1; ; page++ {
		orders, pg, err := c.client.ListOrders(ctx, page, DefaultPerPage, after, before, status)
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			break
		}
		all = append(all, orders...)
		if page >= pg.TotalPages {
			break
		}
	}
	return all, nil
}

// Daily collects the rolling daily window, keeps target-product orders whose
// payment time lands inside it, and appends the cancel sweep. The store
// filters by creation date only, so the payment-time cut happens here.
func (c *Collector) Daily(ctx context.Context, now time.Time) ([]Order, error) {
	start, end := normalize.DailyWindow(now)
	fetched, err := c.Window(ctx, start, end, "")
	if err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(fetched))
	for _, o := range fetched {
		if !o.HasProduct(c.targetProduct) {
			continue
		}
		paid, ok := normalize.ParseISO(o.PaymentTime())
		if !ok {
			c.logger.Warn("Order %d carries no readable payment time, skipped", o.ID)
			continue
		}
		if paid.Before(start) || paid.After(end) {
			continue
		}
		orders = append(orders, o)
	}
	c.logger.Info("Daily window: %d orders fetched, %d target-product orders inside it", len(fetched), len(orders))

	return c.appendCancelled(ctx, orders, now), nil
}

// SingleDate collects one KST calendar day of target-product orders plus the
// cancel sweep.
func (c *Collector) SingleDate(ctx context.Context, date string, now time.Time) ([]Order, error) {
	day, err := time.ParseInLocation("2006-01-02", date, normalize.Seoul)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	fetched, err := c.Window(ctx, day, day.AddDate(0, 0, 1).Add(-time.Second), "")
	if err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(fetched))
	for _, o := range fetched {
		if o.HasProduct(c.targetProduct) {
			orders = append(orders, o)
		}
	}
	c.logger.Info("Date %s: %d orders fetched, %d with the target product", date, len(fetched), len(orders))

	return c.appendCancelled(ctx, orders, now), nil
}

// RecentCancelled pages every cancelled order of the trailing 30 days.
func (c *Collector) RecentCancelled(ctx context.Context, now time.Time) ([]Order, error) {
	return c.Window(ctx, now.AddDate(0, 0, -30), now, "cancelled")
}

func (c *Collector) appendCancelled(ctx context.Context, orders []Order, now time.Time) []Order {
	cancelled, err := c.RecentCancelled(ctx, now)
	if err != nil {
		c.logger.Warn("Cancel sweep failed, keeping fresh orders only: %v", err)
		return orders
	}
	if len(cancelled) > 0 {
		c.logger.Info("Cancel sweep found %d cancelled orders", len(cancelled))
	}
	return append(orders, cancelled...)
}
