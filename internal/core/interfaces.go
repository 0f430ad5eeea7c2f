// Package core defines the core interfaces and types for the streaming gateway.
package core

import "context"

// Provider defines the contract every model backend must implement.
type Provider interface {
	// StreamCompletion executes one streaming completion. The returned channel
	// delivers chunks in backend order and is closed after the final chunk.
	// A mid-stream backend failure is delivered as a terminal StreamEvent with
	// Err set, followed by the channel close; output already delivered is not
	// retracted. Cancelling ctx stops production promptly.
	//
	// The channel always carries at least one chunk (the final one), even for
	// an empty completion. Concurrent calls on the same instance are safe.
	StreamCompletion(ctx context.Context, req *StreamingRequest) (<-chan StreamEvent, error)

	// ValidateConnection performs a lightweight round trip to confirm the
	// backend is reachable and credentials are valid. It never returns an
	// error; all failures are converted to false.
	ValidateConnection(ctx context.Context) bool

	// Config returns the configuration this provider was constructed from.
	Config() ProviderConfig
}
