package events

import (
	"time"

	"github.com/noisycontents/uzu-orders/internal/logger"
)

const (
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
	TypeBatchFailed = "batch_failed"
	TypeRateLimited = "rate_limited"
)

// Event is one observable moment of a sync run.
type Event struct {
	RunID     string                 `json:"run_id"`
	Type      string                 `json:"type"`
	Mode      string                 `json:"mode"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Reporter receives run lifecycle events. Reporting is best-effort: a failing
// reporter must never fail the run it is observing.
type Reporter interface {
	Report(e Event)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(Event) {}

// LogReporter writes events to the run log.
type LogReporter struct {
	logger *logger.Logger
}

func NewLogReporter(logger *logger.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(e Event) {
	if len(e.Data) > 0 {
		r.logger.Info("event %s run=%s mode=%s data=%v", e.Type, e.RunID, e.Mode, e.Data)
		return
	}
	r.logger.Info("event %s run=%s mode=%s", e.Type, e.RunID, e.Mode)
}

// MultiReporter fans one event out to several reporters.
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) Report(e Event) {
	for _, r := range m.reporters {
		r.Report(e)
	}
}
