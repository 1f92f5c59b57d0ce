// Package scheduler owns the per-user recurring scan jobs. One lightweight
// goroutine loops per registered user; actual runs execute under a shared
// semaphore so concurrent users cannot overwhelm the external services.
//
// Runs are allowed to race (a manual trigger against the scheduled one,
// or two users concurrently): correctness is delegated to the idempotent
// upsert in the persistence layer, never to mutual exclusion here.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/aviralsaxena16/Campus-Companion/internal/service"
	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
	"github.com/aviralsaxena16/Campus-Companion/pkg/trace"
	"github.com/aviralsaxena16/Campus-Companion/pkg/util"
)

// Runner executes one pipeline run for a user.
type Runner interface {
	Run(ctx context.Context, userID int) (service.RunReport, error)
}

type Registry struct {
	runner     Runner
	clock      Clock
	interval   time.Duration
	runTimeout time.Duration
	sem        *semaphore.Weighted
	dedup      *util.Deduper
	log        *zap.Logger

	mu      sync.Mutex
	jobs    map[int]context.CancelFunc
	started bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewRegistry builds the job registry. dedup may be nil; it only provides
// best-effort coalescing of rapid manual triggers.
func NewRegistry(runner Runner, clock Clock, cfg config.SchedulerConfig, dedup *util.Deduper, log *zap.Logger) *Registry {
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	runTimeout := time.Duration(cfg.RunTimeoutSeconds) * time.Second
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	maxRuns := cfg.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = 4
	}

	return &Registry{
		runner:     runner,
		clock:      clock,
		interval:   interval,
		runTimeout: runTimeout,
		sem:        semaphore.NewWeighted(int64(maxRuns)),
		dedup:      dedup,
		log:        log,
		jobs:       make(map[int]context.CancelFunc),
	}
}

// Start makes the registry accept jobs.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.baseCtx, r.baseCancel = context.WithCancel(context.Background())
	r.started = true
	r.log.Info("Scan scheduler started",
		zap.Duration("interval", r.interval),
		zap.Duration("run_timeout", r.runTimeout),
	)
}

// Stop cancels all job loops and waits for in-flight runs to finish.
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.baseCancel()
	r.jobs = make(map[int]context.CancelFunc)
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("Scan scheduler stopped")
}

// Register schedules the recurring scan for a user. Idempotent: a user
// with an active job is a no-op.
func (r *Registry) Register(userID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		r.log.Warn("Register called on stopped scheduler", zap.Int("user_id", userID))
		return
	}
	if _, ok := r.jobs[userID]; ok {
		return
	}

	loopCtx, cancel := context.WithCancel(r.baseCtx)
	r.jobs[userID] = cancel

	r.wg.Add(1)
	go r.loop(loopCtx, userID)

	r.log.Info("Scheduled recurring scan", zap.Int("user_id", userID))
}

// Unregister cancels the recurring job. An in-flight run completes
// normally; only the loop stops.
func (r *Registry) Unregister(userID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.jobs[userID]
	if !ok {
		return
	}
	cancel()
	delete(r.jobs, userID)
	r.log.Info("Unscheduled recurring scan", zap.Int("user_id", userID))
}

// IsRegistered reports whether the user has an active recurring job.
func (r *Registry) IsRegistered(userID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[userID]
	return ok
}

// TriggerNow starts a run asynchronously and returns its run id without
// waiting. Rapid repeated triggers for the same user may be coalesced
// best-effort; returns ok=false when the trigger was swallowed.
func (r *Registry) TriggerNow(ctx context.Context, userID int) (string, bool) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return "", false
	}
	baseCtx := r.baseCtx
	r.mu.Unlock()

	if r.dedup != nil && !r.dedup.AcquireOnce(ctx, "scan_now", userID) {
		return "", false
	}

	runID := uuid.NewString()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runOne(baseCtx, userID, runID)
	}()
	return runID, true
}

// loop fires the recurring run until its context is cancelled. Runs derive
// from the registry context, not the loop context, so Unregister never
// kills a run that already started.
func (r *Registry) loop(ctx context.Context, userID int) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(r.interval):
			r.mu.Lock()
			baseCtx := r.baseCtx
			r.mu.Unlock()
			r.runOne(baseCtx, userID, uuid.NewString())
		}
	}
}

// runOne executes a single run under the shared semaphore with a wall-clock
// timeout. A failure (or panic) is logged and never escapes: the job stays
// scheduled for its next interval and other users are unaffected.
func (r *Registry) runOne(ctx context.Context, userID int, runID string) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer r.sem.Release(1)

	runCtx, cancel := context.WithTimeout(trace.WithContext(ctx, runID), r.runTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Scan run panicked",
				zap.Int("user_id", userID),
				zap.String("run_id", runID),
				zap.Any("panic", rec),
			)
		}
	}()

	report, err := r.runner.Run(runCtx, userID)
	if err != nil {
		r.log.Warn("Scan run failed",
			zap.Int("user_id", userID),
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return
	}

	r.log.Debug("Scan run finished",
		zap.Int("user_id", userID),
		zap.String("run_id", report.RunID),
		zap.Int("accepted", report.Accepted),
	)
}
