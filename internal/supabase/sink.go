package supabase

import (
	"context"
	"errors"
	"time"

	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/models"
	"github.com/noisycontents/uzu-orders/internal/retry"
)

// ErrNoRowsStored means there were rows to store and every batch failed.
var ErrNoRowsStored = errors.New("no rows stored")

// Conflict column sets accepted by the table's unique indexes.
const (
	DefaultConflictKey = "order_no,prod_no"
	CodeConflictKey    = "order_code,prod_no"
)

// FailedBatch records one batch that failed after every retry.
type FailedBatch struct {
	Number int
	Rows   int
	Err    error
}

// Summary is the outcome of one store call.
type Summary struct {
	Attempted int           // rows after in-payload dedup
	Deduped   int           // rows dropped by in-payload dedup
	Stored    int           // rows in batches that landed
	Failed    []FailedBatch // batches that did not
}

// Sink writes canonical rows to the table in bounded batches. A failing batch
// is retried, then recorded and skipped, so one poisoned batch cannot sink a
// whole run; the run only fails when nothing at all was stored.
type Sink struct {
	client      *Client
	batchSize   int
	conflictKey string
	policy      retry.Policy
	logger      *logger.Logger
}

// NewSink configures a sink. batchSize ≤ 0 falls back to 10; an empty
// conflictKey falls back to DefaultConflictKey.
func NewSink(client *Client, batchSize int, conflictKey string, policy retry.Policy, logger *logger.Logger) *Sink {
	if batchSize <= 0 {
		batchSize = 10
	}
	if conflictKey == "" {
		conflictKey = DefaultConflictKey
	}
	return &Sink{
		client:      client,
		batchSize:   batchSize,
		conflictKey: conflictKey,
		policy:      policy,
		logger:      logger,
	}
}

// DefaultPolicy is the store retry used when the caller has no opinion:
// three attempts with 2s, 4s waits.
func DefaultPolicy(maxAttempts int) retry.Policy {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return retry.Policy{Attempts: maxAttempts, Backoff: retry.Linear(2 * time.Second)}
}

func (s *Sink) keyFunc() func(models.OrderRow) string {
	if s.conflictKey == CodeConflictKey {
		return models.OrderRow.CodeKey
	}
	return models.OrderRow.Key
}

// Store upserts rows on the sink's conflict key. Rows sharing a conflict key
// are collapsed first (last one wins) because PostgREST rejects payloads that
// hit the same key twice in one statement.
func (s *Sink) Store(ctx context.Context, rows []models.OrderRow) (*Summary, error) {
	deduped := models.DedupLast(rows, s.keyFunc())
	summary := &Summary{
		Attempted: len(deduped),
		Deduped:   len(rows) - len(deduped),
	}
	if summary.Deduped > 0 {
		s.logger.Info("Deduplicated payload: %d -> %d rows", len(rows), len(deduped))
	}
	if len(deduped) == 0 {
		return summary, nil
	}

	batches := chunk(deduped, s.batchSize)
	for i, batch := range batches {
		num := i + 1
		err := s.policy.Do(ctx, func() error {
			return s.client.Upsert(ctx, batch, s.conflictKey)
		})
		if err != nil {
			if ctx.Err() != nil {
				return summary, err
			}
			s.logger.Error("Batch %d/%d failed permanently: %v", num, len(batches), err)
			summary.Failed = append(summary.Failed, FailedBatch{Number: num, Rows: len(batch), Err: err})
			continue
		}
		summary.Stored += len(batch)
		s.logger.Info("Batch %d/%d stored (%d rows)", num, len(batches), len(batch))
	}

	s.logFailures(summary)
	if summary.Stored == 0 {
		return summary, ErrNoRowsStored
	}
	return summary, nil
}

// Refresh replaces the whole table: delete everything, then plain inserts.
// Not idempotent and not retried per batch; callers gate it behind explicit
// confirmation.
func (s *Sink) Refresh(ctx context.Context, rows []models.OrderRow) (*Summary, error) {
	if err := s.client.DeleteAll(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("Existing rows deleted")

	deduped := models.DedupLast(rows, s.keyFunc())
	summary := &Summary{
		Attempted: len(deduped),
		Deduped:   len(rows) - len(deduped),
	}
	if len(deduped) == 0 {
		return summary, nil
	}

	batches := chunk(deduped, s.batchSize)
	for i, batch := range batches {
		num := i + 1
		if err := s.client.Insert(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return summary, err
			}
			s.logger.Error("Batch %d/%d insert failed: %v", num, len(batches), err)
			summary.Failed = append(summary.Failed, FailedBatch{Number: num, Rows: len(batch), Err: err})
			continue
		}
		summary.Stored += len(batch)
	}

	s.logFailures(summary)
	if summary.Stored == 0 {
		return summary, ErrNoRowsStored
	}
	return summary, nil
}

func (s *Sink) logFailures(summary *Summary) {
	if len(summary.Failed) == 0 {
		return
	}
	lost := 0
	for _, fb := range summary.Failed {
		lost += fb.Rows
	}
	s.logger.Warn("%d batches failed (%d rows)", len(summary.Failed), lost)
	for _, fb := range summary.Failed {
		s.logger.Warn("  batch %d: %v", fb.Number, fb.Err)
	}
}

func chunk(rows []models.OrderRow, size int) [][]models.OrderRow {
	var out [][]models.OrderRow
	for size < len(rows) {
		rows, out = rows[size:], append(out, rows[:size:size])
	}
	return append(out, rows)
}
