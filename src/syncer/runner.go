package syncer

import (
	"context"
	"errors"
	"sync"

	"github.com/username/banksync/src/metrics"
	"github.com/username/banksync/src/models"
)

// ErrSyncInProgress is returned when a run is requested while another is
// still executing. Sync is a single logical worker end to end.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// Runner serializes orchestrator runs and feeds results into the metrics
// collector. Both the scheduled job and the manual trigger go through it.
type Runner struct {
	orchestrator *Orchestrator
	defaultOpts  Options
	collector    *metrics.Collector

	mu      sync.Mutex
	running bool
}

func NewRunner(orchestrator *Orchestrator, defaultOpts Options, collector *metrics.Collector) *Runner {
	return &Runner{
		orchestrator: orchestrator,
		defaultOpts:  defaultOpts,
		collector:    collector,
	}
}

// Run executes one sync with the default options.
func (r *Runner) Run(ctx context.Context) (*models.SyncResult, error) {
	return r.RunWith(ctx, r.defaultOpts)
}

// RunWith executes one sync with explicit options, rejecting overlap.
func (r *Runner) RunWith(ctx context.Context, opts Options) (*models.SyncResult, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	result, err := r.orchestrator.Execute(ctx, opts)
	if err != nil {
		return nil, err
	}
	if r.collector != nil {
		r.collector.ObserveRun(result)
	}
	return result, nil
}
