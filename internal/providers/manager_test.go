package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warmstream/internal/core"
)

func init() {
	Register("manager-test-valid", func(cfg core.ProviderConfig) (core.Provider, error) {
		return &stubProvider{cfg: cfg, valid: true}, nil
	})
	Register("manager-test-unreachable", func(cfg core.ProviderConfig) (core.Provider, error) {
		return &stubProvider{cfg: cfg, valid: false}, nil
	})
}

func TestManagerReconfigure(t *testing.T) {
	initial := &stubProvider{cfg: core.ProviderConfig{ProviderName: "manager-test-valid", ModelID: "old"}, valid: true}
	m := NewManager(initial)

	err := m.Reconfigure(context.Background(), core.ProviderConfig{
		ProviderName: "manager-test-valid",
		ModelID:      "new",
	})
	require.NoError(t, err)

	assert.Equal(t, "new", m.Current().Config().ModelID)
}

func TestManagerReconfigure_UnknownKindKeepsActive(t *testing.T) {
	initial := &stubProvider{cfg: core.ProviderConfig{ModelID: "old"}, valid: true}
	m := NewManager(initial)

	err := m.Reconfigure(context.Background(), core.ProviderConfig{ProviderName: "unknown-x"})
	require.Error(t, err)

	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, core.ErrorTypeConfiguration, gwErr.Type)

	// Same instance, not just an equal config.
	assert.Same(t, core.Provider(initial), m.Current())
}

func TestManagerReconfigure_FailedValidationKeepsActive(t *testing.T) {
	initial := &stubProvider{cfg: core.ProviderConfig{ModelID: "old"}, valid: true}
	m := NewManager(initial)

	err := m.Reconfigure(context.Background(), core.ProviderConfig{
		ProviderName: "manager-test-unreachable",
	})
	require.Error(t, err)

	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, core.ErrorTypeConfiguration, gwErr.Type)
	assert.Same(t, core.Provider(initial), m.Current())
}

func TestManagerSnapshotSurvivesReconfigure(t *testing.T) {
	initial := &stubProvider{cfg: core.ProviderConfig{ModelID: "old"}, valid: true}
	m := NewManager(initial)

	// A request takes its snapshot before reconfiguration completes.
	snapshot := m.Current()

	err := m.Reconfigure(context.Background(), core.ProviderConfig{
		ProviderName: "manager-test-valid",
		ModelID:      "new",
	})
	require.NoError(t, err)

	assert.Equal(t, "old", snapshot.Config().ModelID)
	assert.Equal(t, "new", m.Current().Config().ModelID)
}
