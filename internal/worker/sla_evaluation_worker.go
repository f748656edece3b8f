package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/observability"
	"github.com/abdallahh166/TowerOps-sub002/internal/service"
)

// Skip reasons reported to metrics.
const (
	SkipInFlight = "in_flight"
	SkipLocked   = "locked"
	SkipLockErr  = "lock_error"
)

// ErrSkipped is returned by RunOnce when the pass did not run.
var ErrSkipped = errors.New("sla evaluation skipped")

// Evaluator runs one evaluation pass.
type Evaluator interface {
	Run(ctx context.Context) (service.BatchResult, error)
}

// Ticker is the subset of time.Ticker the worker needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// SlaEvaluationOptions configures the scheduler.
type SlaEvaluationOptions struct {
	Interval   time.Duration
	RunTimeout time.Duration
	LockKey    string
	LockTTL    time.Duration
	// Locker defaults to a process-local lock.
	Locker  Locker
	Metrics *observability.Metrics
	Logger  *zap.Logger
	// NewTicker defaults to NewTimeTicker.
	NewTicker func(time.Duration) Ticker
}

// SlaEvaluationWorker runs the evaluator on every tick. A tick is skipped while the previous
// pass is still running or another instance holds the deployment lock.
type SlaEvaluationWorker struct {
	evaluator Evaluator
	opts      SlaEvaluationOptions
	logger    *zap.Logger

	inFlight *atomic.Bool
	closing  *atomic.Bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSlaEvaluationWorker(evaluator Evaluator, opts SlaEvaluationOptions) *SlaEvaluationWorker {
	if opts.Locker == nil {
		opts.Locker = localLocker{}
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.Interval
	}
	if opts.RunTimeout > opts.LockTTL {
		opts.LockTTL = opts.RunTimeout
	}
	if opts.LockKey == "" {
		opts.LockKey = "towerops:sla-evaluation:lock"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlaEvaluationWorker{
		evaluator: evaluator,
		opts:      opts,
		logger:    logger,
		inFlight:  atomic.NewBool(false),
		closing:   atomic.NewBool(false),
		stopCh:    make(chan struct{}),
	}
}

// Start blocks, running a pass per tick until ctx is done or Shutdown is called.
func (w *SlaEvaluationWorker) Start(ctx context.Context) {
	ticker := w.opts.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.logger.Info("sla evaluation worker started",
		zap.Duration("interval", w.opts.Interval),
		zap.Duration("run_timeout", w.opts.RunTimeout),
		zap.String("lock_key", w.opts.LockKey))

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return
		case <-w.stopCh:
			w.wg.Wait()
			return
		case <-ticker.C():
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						w.logger.Error("sla evaluation pass panicked", zap.Any("panic", r))
					}
				}()
				if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, ErrSkipped) {
					w.logger.Error("sla evaluation pass failed", zap.Error(err))
				}
			}()
		}
	}
}

// RunOnce runs a single guarded pass. It returns ErrSkipped when the overlap guard or the
// deployment lock prevents the run.
func (w *SlaEvaluationWorker) RunOnce(ctx context.Context) (service.BatchResult, error) {
	if !w.inFlight.CAS(false, true) {
		w.opts.Metrics.RecordEvaluationSkipped(SkipInFlight)
		w.logger.Warn("previous sla evaluation still running, tick skipped")
		return service.BatchResult{}, ErrSkipped
	}
	defer w.inFlight.Store(false)

	runCtx := ctx
	if w.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.opts.RunTimeout)
		defer cancel()
	}

	release, acquired, err := w.opts.Locker.TryLock(runCtx, w.opts.LockKey, w.opts.LockTTL)
	if err != nil {
		w.opts.Metrics.RecordEvaluationSkipped(SkipLockErr)
		return service.BatchResult{}, err
	}
	if !acquired {
		w.opts.Metrics.RecordEvaluationSkipped(SkipLocked)
		w.logger.Debug("sla evaluation lock held elsewhere", zap.String("lock_key", w.opts.LockKey))
		return service.BatchResult{}, ErrSkipped
	}
	defer func() {
		// the run context may already be expired
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			w.logger.Warn("sla evaluation lock release failed", zap.Error(err))
		}
	}()

	return w.evaluator.Run(runCtx)
}

// Shutdown stops the loop and waits for the pass in flight.
func (w *SlaEvaluationWorker) Shutdown() {
	if w.closing.CAS(false, true) {
		close(w.stopCh)
	}
}
