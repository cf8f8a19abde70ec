package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dealwatch/internal/domain/rule"
	"dealwatch/internal/metrics"
	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

// State is the scheduler's lifecycle state
type State int32

const (
	StateIdle State = iota
	StateActive
	StateSleeping
	StatePaused
	StateBackoff
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateSleeping:
		return "sleeping"
	case StatePaused:
		return "paused"
	case StateBackoff:
		return "backoff"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

const (
	defaultMaxFailures = 5
	defaultBackoff     = 20 * time.Second
	defaultPauseCheck  = 5 * time.Second

	// A sleeping scheduler re-checks the window at this cadence so a config
	// change or wall-clock jump cannot strand it asleep.
	sleepRecheck = 10 * time.Minute

	// First waits shorter than this are skipped; the cycle just runs.
	minResumeWait = 5 * time.Second

	failureHistoryCap = 20
)

// CycleRunner executes one scrape cycle
type CycleRunner interface {
	Run(ctx context.Context, set *rule.Set) error
}

// CycleMeta persists cycle completion times across restarts
type CycleMeta interface {
	LastCompletedAt(ctx context.Context) (time.Time, bool)
	SetLastCompletedAt(ctx context.Context, t time.Time) error
}

// Config holds scheduler timing and failure policy
type Config struct {
	PollInterval   time.Duration
	StartOnCommand bool
	Window         *SleepWindow

	BackoffDelay       time.Duration
	PauseCheckInterval time.Duration

	// MaxConsecutiveFailures is the escalation threshold; reaching it stops
	// the scheduler with a fatal error. Zero means the default of 5.
	MaxConsecutiveFailures int
}

// Scheduler drives the poll loop: wait, run a cycle, handle failure backoff,
// honor the sleep window, and react to pause/resume and reload commands.
// Commands are safe to call from other goroutines; pause and reload take
// effect at the next cycle boundary, never mid-cycle.
type Scheduler struct {
	cfg    Config
	runner CycleRunner
	meta   CycleMeta
	log    *logger.Logger

	rules   atomic.Pointer[rule.Set]
	paused  atomic.Bool
	state   atomic.Int32
	startCh chan struct{}

	mu       sync.Mutex
	failures int
	recent   []string
}

// New creates a scheduler over the given runner and initial rule set
func New(cfg Config, runner CycleRunner, meta CycleMeta, set *rule.Set) *Scheduler {
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = defaultMaxFailures
	}
	if cfg.BackoffDelay <= 0 {
		cfg.BackoffDelay = defaultBackoff
	}
	if cfg.PauseCheckInterval <= 0 {
		cfg.PauseCheckInterval = defaultPauseCheck
	}

	s := &Scheduler{
		cfg:     cfg,
		runner:  runner,
		meta:    meta,
		log:     logger.Get().With("component", "scheduler"),
		startCh: make(chan struct{}, 1),
	}
	s.rules.Store(set)
	return s
}

// Run blocks until the context is canceled or failures escalate to fatal
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.StartOnCommand {
		s.setState(StateIdle)
		s.log.Infow("Waiting for start command")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.startCh:
		}
	}

	s.waitOutRemainingInterval(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.cfg.Window != nil && s.cfg.Window.Contains(time.Now()) {
			s.setState(StateSleeping)
			wait := s.cfg.Window.UntilEnd(time.Now())
			if wait > sleepRecheck {
				wait = sleepRecheck
			}
			s.log.Infow("Inside sleep window", "recheck_in", wait.Round(time.Second))
			if !s.sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}

		if s.paused.Load() {
			s.setState(StatePaused)
			if !s.sleep(ctx, s.cfg.PauseCheckInterval) {
				return ctx.Err()
			}
			continue
		}

		s.setState(StateActive)
		err := s.runCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			metrics.CycleRuns.WithLabelValues("error").Inc()
			if fatal := s.recordFailure(err); fatal != nil {
				s.setState(StateFatal)
				s.log.ErrorWithContext(ctx, fatal, map[string]string{"component": "scheduler"})
				return fatal
			}
			s.setState(StateBackoff)
			s.log.Warnw("Cycle failed, backing off",
				"failures", s.failureCount(),
				"backoff", s.cfg.BackoffDelay,
				"error", err,
			)
			if !s.sleep(ctx, s.cfg.BackoffDelay) {
				return ctx.Err()
			}
			continue
		}

		metrics.CycleRuns.WithLabelValues("success").Inc()
		s.resetFailures()
		if err := s.meta.SetLastCompletedAt(ctx, time.Now()); err != nil {
			s.log.Errorw("Record cycle completion failed", "error", err)
		}

		s.setState(StateIdle)
		if !s.sleep(ctx, s.cfg.PollInterval) {
			return ctx.Err()
		}
	}
}

// waitOutRemainingInterval preserves the poll cadence across restarts: if
// the last cycle completed recently, only the remainder of the interval is
// waited instead of polling immediately.
func (s *Scheduler) waitOutRemainingInterval(ctx context.Context) {
	last, ok := s.meta.LastCompletedAt(ctx)
	if !ok {
		return
	}

	remaining := s.cfg.PollInterval - time.Since(last)
	if remaining <= minResumeWait {
		return
	}

	s.setState(StateIdle)
	s.log.Infow("Resuming mid-interval",
		"last_cycle", last.Format(time.RFC3339),
		"remaining", remaining.Round(time.Second),
	)
	s.sleep(ctx, remaining)
}

// runCycle executes one cycle, converting a panic in the runner into an
// ordinary cycle failure.
func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("cycle panicked: %v", r)
		}
	}()
	return s.runner.Run(ctx, s.rules.Load())
}

// recordFailure bumps the consecutive-failure counter and returns the fatal
// escalation error once the threshold is reached.
func (s *Scheduler) recordFailure(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++

	// The rolling list keeps distinct failure signatures for observability;
	// a repeating error is recorded once.
	sig := err.Error()
	known := false
	for _, r := range s.recent {
		if r == sig {
			known = true
			break
		}
	}
	if !known {
		s.recent = append(s.recent, sig)
		if len(s.recent) > failureHistoryCap {
			s.recent = s.recent[len(s.recent)-failureHistoryCap:]
		}
	}

	if s.failures >= s.cfg.MaxConsecutiveFailures {
		return errors.Wrapf(errors.ErrSchedulerFatal,
			"%d consecutive cycle failures, last: %v", s.failures, err)
	}
	return nil
}

func (s *Scheduler) resetFailures() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

func (s *Scheduler) failureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// RecentFailures returns the newest recorded cycle failures
func (s *Scheduler) RecentFailures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.recent))
	copy(out, s.recent)
	return out
}

// Start releases a scheduler waiting for its start command. A no-op when
// the scheduler is already running.
func (s *Scheduler) Start() {
	select {
	case s.startCh <- struct{}{}:
	default:
	}
}

// Pause stops cycles at the next boundary; a cycle in flight completes
func (s *Scheduler) Pause() {
	s.paused.Store(true)
	s.log.Infow("Paused")
}

// Resume lifts a pause
func (s *Scheduler) Resume() {
	s.paused.Store(false)
	s.log.Infow("Resumed")
}

// Reload swaps in a new rule set, effective from the next cycle
func (s *Scheduler) Reload(set *rule.Set) {
	s.rules.Store(set)
	s.log.Infow("Rules reloaded", "rules", len(set.Rules))
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
	metrics.SchedulerState.Set(float64(st))
}

// sleep waits for d or until the context is canceled; false on cancellation
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
