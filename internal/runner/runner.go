package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
	"github.com/hempies/catalogsync/internal/usecase"
)

// Triggers recorded on each run
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerStartup   = "startup"
)

// Operations shown between runs
const (
	opStarting = "Starting"
	opStopping = "Stopping"
	opStopped  = "Stopped"
	opFailed   = "Failed"
)

const notifyTimeout = 30 * time.Second

// Syncer runs one full sync. *usecase.SyncService satisfies it.
type Syncer interface {
	Run(ctx context.Context, ctl usecase.RunControl) (domain.SyncResult, error)
}

// Status is the JSON status object served by the control surface
type Status struct {
	IsRunning        bool               `json:"is_running"`
	IsPaused         bool               `json:"is_paused"`
	LastSync         *time.Time         `json:"last_sync"`
	CurrentOperation string             `json:"current_operation"`
	Error            string             `json:"error"`
	RunID            string             `json:"run_id,omitempty"`
	Trigger          string             `json:"trigger,omitempty"`
	StartedAt        *time.Time         `json:"started_at,omitempty"`
	Processed        int                `json:"processed"`
	Total            int                `json:"total"`
	Percentage       int                `json:"percentage"`
	LastResult       *domain.SyncResult `json:"last_result,omitempty"`
}

// Config holds runner dependencies that have defaults
type Config struct {
	Notifier domain.Notifier
	Metrics  *Metrics
	Now      func() time.Time
	NewID    func() string
}

// Runner allows at most one sync run at a time and exposes its state
type Runner struct {
	syncer   Syncer
	notifier domain.Notifier
	metrics  *Metrics
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger

	mu     sync.Mutex
	active *activeRun
	status Status
	wg     sync.WaitGroup
}

type activeRun struct {
	id      string
	trigger string
	gate    *Gate
	cancel  context.CancelFunc
	stopped bool
}

// New creates a runner
func New(syncer Syncer, config Config, log *zap.Logger) *Runner {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	newID := config.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}

	return &Runner{
		syncer:   syncer,
		notifier: config.Notifier,
		metrics:  config.Metrics,
		now:      now,
		newID:    newID,
		logger:   logger.OrNop(log),
	}
}

// Start launches a run in the background and returns its id.
// It fails with domain.ErrRunInProgress while another run is active.
func (r *Runner) Start(trigger string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return "", domain.ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &activeRun{
		id:      r.newID(),
		trigger: trigger,
		gate:    NewGate(),
		cancel:  cancel,
	}
	r.active = run

	startedAt := r.now()
	r.status.IsRunning = true
	r.status.CurrentOperation = opStarting
	r.status.Error = ""
	r.status.RunID = run.id
	r.status.Trigger = trigger
	r.status.StartedAt = &startedAt
	r.status.Processed = 0
	r.status.Total = 0
	r.status.Percentage = 0

	r.metrics.runStarted()
	r.wg.Add(1)
	go r.execute(ctx, run, startedAt)

	return run.id, nil
}

// Stop requests cooperative cancellation of the active run
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return domain.ErrNoActiveRun
	}
	r.active.stopped = true
	r.active.cancel()
	r.status.CurrentOperation = opStopping
	r.logger.Info("stop requested", zap.String("run_id", r.active.id))
	return nil
}

// Pause suspends the active run at its next record boundary
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return domain.ErrNoActiveRun
	}
	if !r.active.gate.Pause() {
		return domain.ErrRunPaused
	}
	r.logger.Info("run paused", zap.String("run_id", r.active.id))
	return nil
}

// Resume releases a paused run
func (r *Runner) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return domain.ErrNoActiveRun
	}
	if !r.active.gate.Resume() {
		return domain.ErrRunNotPaused
	}
	r.logger.Info("run resumed", zap.String("run_id", r.active.id))
	return nil
}

// Status returns a snapshot of the current state
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := r.status
	status.IsPaused = r.active != nil && r.active.gate.Paused()
	return status
}

// Wait blocks until the active run, if any, has finished
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops the active run and waits for it, or gives up when ctx ends
func (r *Runner) Shutdown(ctx context.Context) error {
	if err := r.Stop(); err != nil && !errors.Is(err, domain.ErrNoActiveRun) {
		return err
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) execute(ctx context.Context, run *activeRun, startedAt time.Time) {
	defer r.wg.Done()

	log := r.logger.With(zap.String("run_id", run.id), zap.String("trigger", run.trigger))
	log.Info("sync run started")
	r.notify(ctx, log, "started", func(ctx context.Context, n domain.Notifier) error {
		return n.SyncStarted(ctx, run.id, run.trigger)
	})

	result, err := r.runSafely(ctx, run)
	if result.StartedAt.IsZero() {
		result.StartedAt = startedAt
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = r.now()
	}

	r.finish(log, run, result, err)
}

// runSafely turns a panic inside the sync into an error
func (r *Runner) runSafely(ctx context.Context, run *activeRun) (result domain.SyncResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sync panicked: %v", rec)
		}
	}()

	ctl := usecase.RunControl{Checkpoint: run.gate, Progress: &progress{runner: r, run: run}}
	return r.syncer.Run(ctx, ctl)
}

func (r *Runner) finish(log *zap.Logger, run *activeRun, result domain.SyncResult, err error) {
	r.mu.Lock()
	// after a user stop any error is the cancellation surfacing through a remote call
	stopped := run.stopped && err != nil

	outcome := OutcomeSucceeded
	switch {
	case stopped:
		outcome = OutcomeStopped
		r.status.CurrentOperation = opStopped
	case err != nil:
		outcome = OutcomeFailed
		r.status.CurrentOperation = opFailed
		r.status.Error = err.Error()
	default:
		finishedAt := result.FinishedAt
		r.status.LastSync = &finishedAt
		r.status.CurrentOperation = usecase.OpCompleted
	}

	r.status.IsRunning = false
	r.status.LastResult = &result
	r.active = nil
	r.mu.Unlock()

	r.metrics.runFinished(run.trigger, outcome, result.Duration(), result)

	fields := []zap.Field{
		zap.String("outcome", outcome),
		zap.Duration("duration", result.Duration()),
		zap.Any("vendors", result.Vendors),
		zap.Any("products", result.Products),
	}
	switch outcome {
	case OutcomeSucceeded:
		log.Info("sync run finished", fields...)
		r.notify(context.Background(), log, "completed", func(ctx context.Context, n domain.Notifier) error {
			return n.SyncCompleted(ctx, run.id, result)
		})
	case OutcomeStopped:
		log.Info("sync run stopped", fields...)
	default:
		log.Error("sync run failed", append(fields, zap.Error(err))...)
		r.notify(context.Background(), log, "failed", func(ctx context.Context, n domain.Notifier) error {
			return n.SyncFailed(ctx, run.id, result, err)
		})
	}
}

// notify delivers a notification bounded by parent and notifyTimeout; failures are logged only
func (r *Runner) notify(parent context.Context, log *zap.Logger, kind string, send func(context.Context, domain.Notifier) error) {
	if r.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, notifyTimeout)
	defer cancel()

	if err := send(ctx, r.notifier); err != nil {
		log.Warn("notification failed", zap.String("kind", kind), zap.Error(err))
	}
}

// progress forwards usecase progress into the runner status
type progress struct {
	runner *Runner
	run    *activeRun
}

func (p *progress) SetOperation(operation string) {
	p.runner.mu.Lock()
	defer p.runner.mu.Unlock()

	if p.runner.active != p.run || p.run.stopped {
		return
	}
	p.runner.status.CurrentOperation = operation
	p.runner.status.Processed = 0
	p.runner.status.Total = 0
	p.runner.status.Percentage = 0
}

func (p *progress) SetProgress(processed, total int) {
	p.runner.mu.Lock()
	defer p.runner.mu.Unlock()

	if p.runner.active != p.run {
		return
	}
	p.runner.status.Processed = processed
	p.runner.status.Total = total
	p.runner.status.Percentage = percentage(processed, total)
}

func percentage(processed, total int) int {
	if total <= 0 {
		return 0
	}
	if processed >= total {
		return 100
	}
	return processed * 100 / total
}
