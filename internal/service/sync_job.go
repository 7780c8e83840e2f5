package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/models"
)

const defaultSyncInterval = 5 * time.Minute

// SyncJob runs scheduled syncs in the background and keeps the persisted
// state in a [StateStore] between runs.
type SyncJob struct {
	syncer   Syncer
	state    StateStore
	params   models.SyncParams
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates a job that syncs with params on every tick. The
// PersistedState and Reason of params are filled in per run. The job is idle
// until Start is called. A zero or negative interval defaults to 5 minutes.
func NewSyncJob(syncer Syncer, state StateStore, params models.SyncParams,
	interval time.Duration, log *logger.Logger) *SyncJob {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SyncJob{syncer: syncer, state: state, params: params, interval: interval, log: log}
}

// RunOnce loads the persisted state, syncs and saves the state the sync
// returned. The state is saved even when the sync reports a failure.
func (j *SyncJob) RunOnce(ctx context.Context, reason models.SyncReason) (*models.SyncResultReport, error) {
	persisted, err := j.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted state: %w", err)
	}

	params := j.params
	params.Reason = reason
	params.PersistedState = persisted
	report, err := j.syncer.Sync(ctx, params)
	if err != nil {
		return nil, err
	}

	if err = j.state.Save(ctx, report.PersistedState); err != nil {
		return report, fmt.Errorf("save persisted state: %w", err)
	}
	return report, nil
}

func (j *SyncJob) run(ctx context.Context, reason models.SyncReason) {
	report, err := j.RunOnce(ctx, reason)
	if err != nil {
		j.log.Err(err).Str("func", "SyncJob.run").Str("reason", reason.String()).Msg("sync failed")
		return
	}
	j.log.Info().
		Str("reason", reason.String()).
		Str("status", report.Status.String()).
		Msg("scheduled sync finished")
}

// Start stops any previously running job, then launches a goroutine that
// syncs once at startup and then on every tick. The goroutine exits when
// ctx is cancelled or Stop is called.
func (j *SyncJob) Start(ctx context.Context) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		j.run(jobCtx, models.ReasonStartup)

		t := time.NewTicker(j.interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.run(jobCtx, models.ReasonScheduled)
			}
		}
	}()
}

// Stop cancels the background goroutine and blocks until it has exited.
// Safe to call when the job is not running.
func (j *SyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
