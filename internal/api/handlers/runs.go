package handlers

import (
	"sync"
	"time"

	"github.com/noisycontents/uzu-orders/internal/pipeline"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one recorded sync run.
type Run struct {
	ID            string     `json:"id"`
	Mode          string     `json:"mode"`
	Status        string     `json:"status"`
	From          string     `json:"from,omitempty"`
	To            string     `json:"to,omitempty"`
	Date          string     `json:"date,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Collected     int        `json:"collected"`
	Rows          int        `json:"rows"`
	Stored        int        `json:"stored"`
	FailedBatches int        `json:"failed_batches"`
	Error         string     `json:"error,omitempty"`
}

// Registry keeps finished and in-flight runs in memory, newest first. Runs
// are not persisted; a restart forgets them.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
	ids  []string
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Start records a new running run.
func (r *Registry) Start(id, mode string, opts pipeline.Options, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[id] = &Run{
		ID:        id,
		Mode:      mode,
		Status:    StatusRunning,
		From:      opts.From,
		To:        opts.To,
		Date:      opts.Date,
		StartedAt: now,
	}
	r.ids = append([]string{id}, r.ids...)
}

// Finish records a run's outcome.
func (r *Registry) Finish(id string, res *pipeline.Result, runErr error, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return
	}
	run.FinishedAt = &now
	run.Status = StatusSucceeded
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	if res != nil {
		run.Collected = res.Collected
		run.Rows = res.Rows
		run.Stored = res.Stored
		run.FailedBatches = res.FailedBatches
	}
}

// Get returns one run by ID.
func (r *Registry) Get(id string) (*Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, false
	}
	copied := *run
	return &copied, true
}

// List returns every recorded run, newest first.
func (r *Registry) List() []*Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Run, 0, len(r.ids))
	for _, id := range r.ids {
		copied := *r.runs[id]
		out = append(out, &copied)
	}
	return out
}
