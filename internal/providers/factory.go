// Package providers provides the factory and active-provider management for
// model backends.
package providers

import (
	"sort"

	"warmstream/internal/core"
)

// Builder creates a provider instance from configuration
type Builder func(cfg core.ProviderConfig) (core.Provider, error)

// registry holds all registered provider builders. It is populated once at
// process start via init() in the provider packages and read-only afterwards.
var registry = make(map[string]Builder)

// Register allows provider packages to register themselves.
// This should be called from init() functions in provider packages.
func Register(providerName string, builder Builder) {
	registry[providerName] = builder
}

// Create instantiates a provider based on configuration. An unrecognized
// provider name or a missing required field yields a configuration error.
func Create(cfg core.ProviderConfig) (core.Provider, error) {
	builder, ok := registry[cfg.ProviderName]
	if !ok {
		return nil, core.NewConfigurationError("unknown provider kind: "+cfg.ProviderName, nil)
	}
	return builder(cfg)
}

// ListRegistered returns the sorted list of all registered provider kinds,
// independent of which provider is currently active.
func ListRegistered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
