package warmup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warmstream/internal/core"
)

// cycleProvider records StreamCompletion calls and can fail on demand.
type cycleProvider struct {
	calls   atomic.Int64
	failAll bool
	drained atomic.Int64
}

func (p *cycleProvider) StreamCompletion(ctx context.Context, req *core.StreamingRequest) (<-chan core.StreamEvent, error) {
	p.calls.Add(1)
	if p.failAll {
		return nil, core.NewBackendError("test", "injected failure", nil)
	}

	ch := make(chan core.StreamEvent, 3)
	ch <- core.StreamEvent{Chunk: core.StreamChunk{Content: "wa"}}
	ch <- core.StreamEvent{Chunk: core.StreamChunk{Content: "rm"}}
	ch <- core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}}
	close(ch)
	p.drained.Add(1)
	return ch, nil
}

func (p *cycleProvider) ValidateConnection(ctx context.Context) bool { return true }

func (p *cycleProvider) Config() core.ProviderConfig {
	return core.ProviderConfig{ProviderName: "test", ModelID: "test-model"}
}

// fixedSource returns a fixed provider (possibly nil).
type fixedSource struct {
	provider core.Provider
}

func (s *fixedSource) Current() core.Provider { return s.provider }

func waitForCalls(t *testing.T, p *cycleProvider, n int64) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for p.calls.Load() < n {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d warmup calls, got %d", n, p.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSchedulerRunsCycles(t *testing.T) {
	provider := &cycleProvider{}
	s := New(&fixedSource{provider: provider}, time.Millisecond, time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	waitForCalls(t, provider, 2)
	assert.True(t, s.Alive())
}

func TestSchedulerSurvivesFailedCycles(t *testing.T) {
	provider := &cycleProvider{failAll: true}
	s := New(&fixedSource{provider: provider}, time.Millisecond, time.Millisecond)

	s.Start(context.Background())
	defer s.Stop()

	// After any number of injected failures the loop must still be running
	// and still attempting new cycles.
	waitForCalls(t, provider, 3)
	assert.True(t, s.Alive())
}

func TestSchedulerSkipsWhenNoProvider(t *testing.T) {
	s := New(&fixedSource{provider: nil}, time.Millisecond, time.Millisecond)

	s.Start(context.Background())

	// Give it time for a few (skipped) cycles; a nil provider must not
	// crash or stop the task.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, s.Alive())

	s.Stop()
	assert.False(t, s.Alive())
}

func TestSchedulerStop(t *testing.T) {
	provider := &cycleProvider{}
	s := New(&fixedSource{provider: provider}, time.Millisecond, time.Millisecond)

	s.Start(context.Background())
	waitForCalls(t, provider, 1)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.False(t, s.Alive())
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	provider := &cycleProvider{}
	s := New(&fixedSource{provider: provider}, 10*time.Millisecond, time.Hour)

	s.Start(context.Background())
	s.Start(context.Background()) // second call must not spawn a second task
	defer s.Stop()

	waitForCalls(t, provider, 1)

	// With an hour-long interval a single task performs exactly one cycle.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), provider.calls.Load())
}

func TestSchedulerNotAliveBeforeStart(t *testing.T) {
	s := New(&fixedSource{}, time.Millisecond, time.Millisecond)
	require.False(t, s.Alive())
}

func TestSchedulerRespectsParentContext(t *testing.T) {
	provider := &cycleProvider{}
	ctx, cancel := context.WithCancel(context.Background())
	s := New(&fixedSource{provider: provider}, time.Millisecond, time.Millisecond)

	s.Start(ctx)
	waitForCalls(t, provider, 1)

	cancel()

	deadline := time.After(3 * time.Second)
	for s.Alive() {
		select {
		case <-deadline:
			t.Fatal("scheduler still alive after parent context cancellation")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	s := New(&fixedSource{}, time.Hour, time.Hour)

	// Must return immediately without panicking when nothing was started.
	s.Stop()
	assert.False(t, s.Alive())
}

func TestSchedulerStopRacingStart(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := New(&fixedSource{provider: &cycleProvider{}}, time.Hour, time.Hour)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			s.Stop()
		}()
		wg.Wait()

		// Whichever interleaving occurred, make sure the goroutine is gone.
		s.Stop()
		assert.False(t, s.Alive())
	}
}
