// Package warmup keeps the active provider's backend loaded by periodically
// driving a minimal completion through it, reducing time-to-first-content for
// real traffic by preventing cold starts.
package warmup

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"warmstream/internal/core"
	"warmstream/internal/observability"
)

const (
	// DefaultInitialDelay is how long the scheduler waits after start before
	// the first warmup attempt, letting the rest of the process initialize.
	DefaultInitialDelay = 30 * time.Second

	// DefaultInterval is the pause between the end of one warmup attempt and
	// the start of the next. Measuring end-to-start means a slow warmup never
	// overlaps the next one.
	DefaultInterval = 2 * time.Minute
)

// ProviderSource yields the current active provider. A nil provider means no
// provider is configured yet; the scheduler skips such cycles.
type ProviderSource interface {
	Current() core.Provider
}

// Scheduler is the background warmup task. Exactly one instance runs per
// process; it never runs concurrently with itself.
type Scheduler struct {
	source       ProviderSource
	initialDelay time.Duration
	interval     time.Duration

	mu      sync.Mutex // guards cancel across Start/Stop
	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Scheduler. Non-positive delay or interval values fall back to
// the defaults.
func New(source ProviderSource, initialDelay, interval time.Duration) *Scheduler {
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		source:       source,
		initialDelay: initialDelay,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

// Start launches the scheduler goroutine. Calling Start more than once is a
// no-op; the task runs until Stop or until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.CompareAndSwap(false, true) {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	slog.Info("warmup scheduler started",
		"initial_delay", s.initialDelay,
		"interval", s.interval,
	)

	go s.run(ctx)
}

// Stop requests cancellation and waits for the scheduler goroutine to exit.
// Cancellation during an in-flight cycle is honored at the next suspension
// point; a backend call already in progress is not forcibly aborted beyond
// context propagation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-s.done
}

// Alive reports whether the background task has been started and has not yet
// exited.
func (s *Scheduler) Alive() bool {
	if !s.started.Load() {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("warmup scheduler cancelled")
			return
		case <-timer.C:
		}

		s.runCycle(ctx)

		// Interval runs from the end of one attempt to the start of the
		// next wait, so a slow warmup cannot cause overlapping attempts.
		timer.Reset(s.interval)
	}
}

// warmupRequest is the fixed minimal request driven through the provider.
// Small enough to be cheap, real enough to force the backend to load.
func warmupRequest() *core.StreamingRequest {
	return &core.StreamingRequest{
		Messages:    []core.Message{{Role: core.RoleUser, Content: "Hi"}},
		MaxTokens:   10,
		Temperature: 0.7,
	}
}

// runCycle drives one warmup completion through the active provider. Failures
// are logged and counted but never terminate the scheduler; the next cycle
// runs at the normal interval.
func (s *Scheduler) runCycle(ctx context.Context) {
	provider := s.source.Current()
	if provider == nil {
		slog.Warn("warmup: provider not initialized, skipping cycle")
		observability.WarmupCycles.WithLabelValues(observability.CycleSkipped).Inc()
		return
	}

	cfg := provider.Config()
	start := time.Now()

	events, err := provider.StreamCompletion(ctx, warmupRequest())
	if err != nil {
		slog.Warn("warmup request failed",
			"provider", cfg.ProviderName,
			"error", err,
		)
		observability.WarmupCycles.WithLabelValues(observability.CycleFailed).Inc()
		return
	}

	// Drain the entire sequence: only full consumption guarantees the
	// backend has completed loading end-to-end.
	var (
		ttfc     time.Duration
		sawFirst bool
		cycleErr error
	)
	for ev := range events {
		if ev.Err != nil {
			cycleErr = ev.Err
			continue
		}
		if !sawFirst && ev.Chunk.Content != "" {
			ttfc = time.Since(start)
			sawFirst = true
		}
	}

	elapsed := time.Since(start)

	if cycleErr != nil {
		slog.Warn("warmup cycle failed mid-stream",
			"provider", cfg.ProviderName,
			"elapsed", elapsed,
			"error", cycleErr,
		)
		observability.WarmupCycles.WithLabelValues(observability.CycleFailed).Inc()
		return
	}

	observability.WarmupCycles.WithLabelValues(observability.CycleOK).Inc()
	observability.WarmupDuration.Observe(elapsed.Seconds())
	if sawFirst {
		observability.WarmupTTFC.Observe(ttfc.Seconds())
	}

	slog.Info("warmup cycle complete",
		"provider", cfg.ProviderName,
		"model", cfg.ModelID,
		"ttfc", ttfc,
		"elapsed", elapsed,
	)
}
