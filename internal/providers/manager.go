package providers

import (
	"context"
	"log/slog"
	"sync"

	"warmstream/internal/core"
)

// Manager owns the process-wide active provider reference. The reference is
// set once at startup and only ever replaced, never cleared. Readers take a
// snapshot via Current at the start of an operation and use it for the
// operation's full duration, so a concurrent reconfiguration never swaps a
// provider out from under an in-flight request.
type Manager struct {
	mu     sync.RWMutex
	active core.Provider
}

// NewManager creates a Manager with the given initial provider.
func NewManager(initial core.Provider) *Manager {
	return &Manager{active: initial}
}

// Current returns a snapshot of the active provider. It may be nil only if the
// Manager was constructed without an initial provider.
func (m *Manager) Current() core.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Reconfigure constructs a candidate provider from cfg, validates its backend
// connection, and atomically replaces the active provider on success. On any
// failure the previous active provider remains unchanged and a configuration
// error is returned. Requests already running against the old provider
// complete in full against the old instance.
func (m *Manager) Reconfigure(ctx context.Context, cfg core.ProviderConfig) error {
	candidate, err := Create(cfg)
	if err != nil {
		return err
	}

	if !candidate.ValidateConnection(ctx) {
		return core.NewConfigurationError("failed to validate new provider configuration", nil)
	}

	m.mu.Lock()
	m.active = candidate
	m.mu.Unlock()

	slog.Info("provider reconfigured",
		"provider", cfg.ProviderName,
		"model", cfg.ModelID,
	)
	return nil
}
