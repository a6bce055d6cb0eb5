package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noisycontents/uzu-orders/internal/config"
	"github.com/noisycontents/uzu-orders/internal/events"
	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/models"
	"github.com/noisycontents/uzu-orders/internal/normalize"
	"github.com/noisycontents/uzu-orders/internal/services/csvimport"
	"github.com/noisycontents/uzu-orders/internal/services/imweb"
	"github.com/noisycontents/uzu-orders/internal/services/woocommerce"
	"github.com/noisycontents/uzu-orders/internal/supabase"
)

// Operating modes. Each mode selects a collector configuration; all of them
// share the row mappers and the upsert sink.
const (
	ModeImwebRange      = "imweb-range"
	ModeImwebDaily      = "imweb-daily"
	ModeImwebSingleDate = "imweb-single-date"
	ModeFullRefresh     = "full-refresh"
	ModeRecoverCSV      = "recover-csv"
	ModeRetryMissing    = "retry-missing-products"
	ModeWoocommerce     = "woocommerce"
	ModeCSVImweb        = "csv-imweb"
	ModeCSVWoocommerce  = "csv-woocommerce"
)

// ErrConfirmRequired gates the full refresh: it deletes every stored row
// before reinserting, so it never runs without an explicit confirmation.
var ErrConfirmRequired = errors.New("full refresh deletes all stored rows; confirmation required")

// Options carry the per-run parameters. RunID is optional; callers that
// track runs (the HTTP trigger) assign their own, everyone else gets a
// fresh one.
type Options struct {
	RunID   string
	From    string // KST date, 2006-01-02
	To      string
	Date    string
	File    string
	Confirm bool
}

// Result summarizes one run.
type Result struct {
	RunID         string
	Mode          string
	Collected     int // orders pulled from the source
	Rows          int // canonical rows mapped
	Stored        int
	Deduped       int
	FailedBatches int
}

// Runner executes sync runs. Everything is sequential: one source sweep,
// one detail expansion, one store pass, with run events emitted along the
// way. A Runner is reusable across runs but not safe for concurrent ones.
type Runner struct {
	cfg      *config.Config
	logger   *logger.Logger
	reporter events.Reporter
	store    *supabase.Client

	// OnProgress observes the slow per-order detail loops, for progress
	// bars. Called with (done, total); nil is fine.
	OnProgress func(done, total int)

	imwebBaseURL string
	detailPause  time.Duration
	now          func() time.Time
}

func New(cfg *config.Config, reporter events.Reporter, logger *logger.Logger) *Runner {
	if reporter == nil {
		reporter = events.NopReporter{}
	}
	return &Runner{
		cfg:          cfg,
		logger:       logger,
		reporter:     reporter,
		store:        supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, logger),
		imwebBaseURL: imweb.DefaultBaseURL,
		detailPause:  300 * time.Millisecond,
		now:          time.Now,
	}
}

// Run validates the mode's credentials, executes it, and reports the
// started/finished events. The returned Result is always populated, also
// on error.
func (r *Runner) Run(ctx context.Context, mode string, opts Options) (*Result, error) {
	res := &Result{RunID: opts.RunID, Mode: mode}
	if res.RunID == "" {
		res.RunID = uuid.New().String()
	}

	if err := r.validate(mode); err != nil {
		return res, err
	}

	r.report(res, events.TypeRunStarted, startData(opts))
	err := r.dispatch(ctx, mode, opts, res)

	data := map[string]interface{}{
		"collected":      res.Collected,
		"rows":           res.Rows,
		"stored":         res.Stored,
		"failed_batches": res.FailedBatches,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	r.report(res, events.TypeRunFinished, data)
	return res, err
}

func (r *Runner) dispatch(ctx context.Context, mode string, opts Options, res *Result) error {
	switch mode {
	case ModeImwebRange:
		return r.imwebRange(ctx, opts, res)
	case ModeImwebDaily:
		return r.imwebDaily(ctx, res)
	case ModeImwebSingleDate:
		return r.imwebSingleDate(ctx, opts, res)
	case ModeFullRefresh:
		return r.fullRefresh(ctx, opts, res)
	case ModeRecoverCSV:
		return r.recoverCSV(ctx, opts, res)
	case ModeRetryMissing:
		return r.retryMissing(ctx, res)
	case ModeWoocommerce:
		return r.woocommerce(ctx, opts, res)
	case ModeCSVImweb:
		return r.csvImweb(ctx, opts, res)
	case ModeCSVWoocommerce:
		return r.csvWoocommerce(ctx, opts, res)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (r *Runner) validate(mode string) error {
	if err := r.cfg.ValidateSupabase(); err != nil {
		return err
	}
	switch mode {
	case ModeImwebRange, ModeImwebDaily, ModeImwebSingleDate,
		ModeFullRefresh, ModeRecoverCSV, ModeRetryMissing:
		return r.cfg.ValidateImweb()
	case ModeWoocommerce:
		return r.cfg.ValidateWoo()
	}
	return nil
}

// imwebStack builds the client/collector/mapper trio for one run, exchanging
// the key/secret pair for a token when no pre-issued one is configured.
func (r *Runner) imwebStack(ctx context.Context, res *Result) (*imweb.Client, *imweb.Collector, *imweb.Mapper, error) {
	token := r.cfg.ImwebAccessToken
	if token == "" || token == "your_access_token_here" {
		var err error
		token, err = imweb.Authenticate(ctx, r.imwebBaseURL, r.cfg.ImwebAPIKey, r.cfg.ImwebSecretKey)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("token exchange failed: %w", err)
		}
		r.logger.Info("Access token issued")
	}

	client := imweb.NewClientWith(r.imwebBaseURL, token, r.logger)
	client.OnRateLimit(func(wait time.Duration) {
		r.report(res, events.TypeRateLimited, map[string]interface{}{"wait": wait.String()})
	})
	mapper := imweb.NewMapper(
		normalize.NewPhoneNormalizer(normalize.DefaultPhoneRules()),
		r.resolver(),
	)
	return client, imweb.NewCollector(client, r.logger), mapper, nil
}

func (r *Runner) resolver() *normalize.ProductCodeResolver {
	return normalize.NewProductCodeResolver(normalize.DefaultProductCodes(), normalize.DefaultDurationSuffixes())
}

func (r *Runner) imwebRange(ctx context.Context, opts Options, res *Result) error {
	start, err := parseKSTDate(opts.From)
	if err != nil {
		return err
	}
	end, err := parseKSTDate(opts.To)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("range end %s precedes start %s", opts.To, opts.From)
	}

	client, collector, mapper, err := r.imwebStack(ctx, res)
	if err != nil {
		return err
	}
	orders, err := collector.Range(ctx, start, end)
	if err != nil && len(orders) == 0 {
		return err
	}
	orders = imweb.DedupByOrderNo(orders)
	res.Collected = len(orders)

	rows := r.expandOrders(ctx, client, mapper, orders)
	return r.storeRows(ctx, res, rows, r.cfg.ImwebBatchSize, supabase.DefaultConflictKey)
}

func (r *Runner) imwebDaily(ctx context.Context, res *Result) error {
	client, collector, mapper, err := r.imwebStack(ctx, res)
	if err != nil {
		return err
	}
	orders, err := collector.Daily(ctx, r.now())
	if err != nil && len(orders) == 0 {
		return err
	}
	res.Collected = len(orders)

	rows := r.expandOrders(ctx, client, mapper, orders)
	return r.storeRows(ctx, res, rows, r.cfg.ImwebBatchSize, supabase.DefaultConflictKey)
}

func (r *Runner) imwebSingleDate(ctx context.Context, opts Options, res *Result) error {
	client, collector, mapper, err := r.imwebStack(ctx, res)
	if err != nil {
		return err
	}
	orders, err := collector.SingleDate(ctx, opts.Date)
	if err != nil && len(orders) == 0 {
		return err
	}
	res.Collected = len(orders)

	rows := r.expandOrders(ctx, client, mapper, orders)
	return r.storeRows(ctx, res, rows, r.cfg.ImwebBatchSize, supabase.DefaultConflictKey)
}

// fullRefresh rebuilds the table from scratch: backfill every day since the
// first order, delete everything stored, reinsert. The only non-idempotent
// mode.
func (r *Runner) fullRefresh(ctx context.Context, opts Options, res *Result) error {
	if !opts.Confirm {
		return ErrConfirmRequired
	}
	start, err := parseKSTDate(r.cfg.FirstOrderDate)
	if err != nil {
		return fmt.Errorf("FIRST_ORDER_DATE: %w", err)
	}

	client, collector, mapper, err := r.imwebStack(ctx, res)
	if err != nil {
		return err
	}
	orders, err := collector.Backfill(ctx, start, r.now())
	if err != nil && len(orders) == 0 {
		return err
	}
	res.Collected = len(orders)

	rows := r.expandOrders(ctx, client, mapper, orders)
	res.Rows = len(rows)
	if len(rows) == 0 {
		return errors.New("backfill collected nothing; refusing to empty the table")
	}

	sink := supabase.NewSink(r.store, r.cfg.CSVBatchSize, supabase.DefaultConflictKey,
		supabase.DefaultPolicy(r.cfg.MaxRetries), r.logger)
	summary, err := sink.Refresh(ctx, rows)
	r.recordSummary(res, summary)
	return err
}

// recoverCSV diffs a storefront CSV export against the stored order numbers
// and pulls each missing order individually.
func (r *Runner) recoverCSV(ctx context.Context, opts Options, res *Result) error {
	records, err := csvimport.ReadFile(opts.File)
	if err != nil {
		return err
	}
	stored, err := r.store.StoredOrderNos(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var missing []string
	for _, rec := range records {
		no := rec.Get("주문번호")
		if no == "" || stored[no] || seen[no] {
			continue
		}
		seen[no] = true
		missing = append(missing, no)
	}
	r.logger.Info("Export lists %d orders, %d missing from the table", len(records), len(missing))
	if len(missing) == 0 {
		return nil
	}

	client, _, mapper, err := r.imwebStack(ctx, res)
	if err != nil {
		return err
	}

	var rows []models.OrderRow
	for i, no := range missing {
		if ctx.Err() != nil {
			break
		}
		order, err := client.Order(ctx, no)
		if err != nil {
			r.logger.Warn("Order %s unavailable: %v", no, err)
			continue
		}
		if order == nil {
			r.logger.Warn("Order %s not found upstream, skipped", no)
			continue
		}
		products, err := client.Products(ctx, no, 0)
		if err != nil {
			r.logger.Warn("Products for order %s unavailable: %v", no, err)
		}
		rows = append(rows, mapper.Rows(*order, products)...)
		res.Collected++
		r.progress(i+1, len(missing))
		r.pause(ctx, r.detailPause)
	}
	return r.storeRows(ctx, res, rows, r.cfg.ImwebBatchSize, supabase.DefaultConflictKey)
}

// retryMissing re-fetches product lines for orders stored with the sentinel
// product name. Orders whose lines resolve this time upsert real rows next
// to the sentinel; orders still without lines stay as they are.
func (r *Runner) retryMissing(ctx context.Context, res *Result) error {
	orderNos, err := r.store.SentinelOrderNos(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("%d orders stored without product info", len(orderNos))
	if len(orderNos) == 0 {
		return nil
	}

	client, _, mapper, err := r.imwebStack(ctx, res)
	if err != nil {
		return err
	}

	var rows []models.OrderRow
	for i, no := range orderNos {
		if ctx.Err() != nil {
			break
		}
		products, err := client.Products(ctx, no, 0)
		if err != nil {
			r.logger.Warn("Products for order %s unavailable: %v", no, err)
			continue
		}
		if len(products) == 0 {
			continue
		}
		order, err := client.Order(ctx, no)
		if err != nil || order == nil {
			r.logger.Warn("Order %s unavailable for re-mapping", no)
			continue
		}
		rows = append(rows, mapper.Rows(*order, products)...)
		res.Collected++
		r.progress(i+1, len(orderNos))
		r.pause(ctx, r.detailPause)
	}
	r.logger.Info("Recovered product info for %d of %d orders", res.Collected, len(orderNos))
	return r.storeRows(ctx, res, rows, r.cfg.ImwebBatchSize, supabase.DefaultConflictKey)
}

func (r *Runner) woocommerce(ctx context.Context, opts Options, res *Result) error {
	client := woocommerce.NewClient(r.cfg.WooSiteURL, r.cfg.WooConsumerKey, r.cfg.WooConsumerSecret, r.logger)
	collector := woocommerce.NewCollector(client, int64(r.cfg.WooTargetProduct), r.logger)
	mapper := woocommerce.NewMapper(
		normalize.NewPhoneNormalizer(normalize.DefaultPhoneRules()),
		int64(r.cfg.WooTargetProduct),
	)

	var orders []woocommerce.Order
	var err error
	if opts.Date != "" {
		orders, err = collector.SingleDate(ctx, opts.Date, r.now())
	} else {
		orders, err = collector.Daily(ctx, r.now())
	}
	if err != nil {
		return err
	}
	res.Collected = len(orders)

	var rows []models.OrderRow
	for _, o := range orders {
		rows = append(rows, mapper.Rows(o)...)
	}
	return r.storeRows(ctx, res, rows, r.cfg.CSVBatchSize, supabase.DefaultConflictKey)
}

func (r *Runner) csvImweb(ctx context.Context, opts Options, res *Result) error {
	records, err := csvimport.ReadFile(opts.File)
	if err != nil {
		return err
	}
	res.Collected = len(records)

	codes, err := r.store.OrderCodes(ctx)
	if err != nil {
		r.logger.Warn("Order-code lookup failed, synthesizing all codes: %v", err)
		codes = nil
	}

	dialect := csvimport.NewImwebDialect(
		normalize.NewPhoneNormalizer(normalize.DefaultPhoneRules()),
		r.resolver(),
		codes,
	)
	rows := dialect.Rows(records)
	return r.storeRows(ctx, res, rows, r.cfg.CSVBatchSize, supabase.DefaultConflictKey)
}

func (r *Runner) csvWoocommerce(ctx context.Context, opts Options, res *Result) error {
	records, err := csvimport.ReadFile(opts.File)
	if err != nil {
		return err
	}
	res.Collected = len(records)

	dialect := csvimport.NewDokDialect(
		normalize.NewPhoneNormalizer(normalize.GermanShopPhoneRules()),
		int64(r.cfg.WooTargetProduct),
	)
	rows := dialect.Rows(records)
	return r.storeRows(ctx, res, rows, r.cfg.CSVBatchSize, supabase.CodeConflictKey)
}

// expandOrders fetches product lines for every collected order and maps the
// rows. A failing detail fetch degrades to the sentinel row rather than
// dropping the order.
func (r *Runner) expandOrders(ctx context.Context, client *imweb.Client, mapper *imweb.Mapper, orders []imweb.Order) []models.OrderRow {
	rows := make([]models.OrderRow, 0, len(orders))
	for i, o := range orders {
		if ctx.Err() != nil {
			return rows
		}
		products, err := client.Products(ctx, string(o.OrderNo), 0)
		if err != nil {
			r.logger.Warn("Products for order %s unavailable, storing placeholder: %v", o.OrderNo, err)
		}
		rows = append(rows, mapper.Rows(o, products)...)
		r.progress(i+1, len(orders))
		r.pause(ctx, r.detailPause)
	}
	return rows
}

func (r *Runner) storeRows(ctx context.Context, res *Result, rows []models.OrderRow, batchSize int, conflictKey string) error {
	res.Rows = len(rows)
	if len(rows) == 0 {
		r.logger.Info("Nothing to store")
		return nil
	}

	sink := supabase.NewSink(r.store, batchSize, conflictKey,
		supabase.DefaultPolicy(r.cfg.MaxRetries), r.logger)
	summary, err := sink.Store(ctx, rows)
	r.recordSummary(res, summary)
	return err
}

func (r *Runner) recordSummary(res *Result, summary *supabase.Summary) {
	if summary == nil {
		return
	}
	res.Stored = summary.Stored
	res.Deduped = summary.Deduped
	res.FailedBatches = len(summary.Failed)
	for _, fb := range summary.Failed {
		r.report(res, events.TypeBatchFailed, map[string]interface{}{
			"batch": fb.Number,
			"rows":  fb.Rows,
			"error": fb.Err.Error(),
		})
	}
}

func (r *Runner) report(res *Result, eventType string, data map[string]interface{}) {
	r.reporter.Report(events.Event{
		RunID:     res.RunID,
		Type:      eventType,
		Mode:      res.Mode,
		Data:      data,
		Timestamp: r.now(),
	})
}

func (r *Runner) progress(done, total int) {
	if r.OnProgress != nil {
		r.OnProgress(done, total)
	}
}

func (r *Runner) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func startData(opts Options) map[string]interface{} {
	data := map[string]interface{}{}
	if opts.From != "" {
		data["from"] = opts.From
	}
	if opts.To != "" {
		data["to"] = opts.To
	}
	if opts.Date != "" {
		data["date"] = opts.Date
	}
	if opts.File != "" {
		data["file"] = opts.File
	}
	return data
}

func parseKSTDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, normalize.Seoul)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
