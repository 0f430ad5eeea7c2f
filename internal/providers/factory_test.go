package providers

import (
	"context"
	"errors"
	"testing"

	"warmstream/internal/core"
)

// stubProvider is a minimal core.Provider for factory and manager tests.
type stubProvider struct {
	cfg    core.ProviderConfig
	valid  bool
	events []core.StreamEvent
}

func (s *stubProvider) StreamCompletion(ctx context.Context, req *core.StreamingRequest) (<-chan core.StreamEvent, error) {
	ch := make(chan core.StreamEvent, len(s.events)+1)
	for _, ev := range s.events {
		ch <- ev
	}
	if len(s.events) == 0 {
		ch <- core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}}
	}
	close(ch)
	return ch, nil
}

func (s *stubProvider) ValidateConnection(ctx context.Context) bool {
	return s.valid
}

func (s *stubProvider) Config() core.ProviderConfig {
	return s.cfg
}

func TestCreate_UnknownKind(t *testing.T) {
	_, err := Create(core.ProviderConfig{ProviderName: "unknown-x"})
	if err == nil {
		t.Fatal("expected error for unknown provider kind, got nil")
	}

	var gwErr *core.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *core.GatewayError, got %T", err)
	}
	if gwErr.Type != core.ErrorTypeConfiguration {
		t.Errorf("error type = %s, want %s", gwErr.Type, core.ErrorTypeConfiguration)
	}

	for _, name := range ListRegistered() {
		if name == "unknown-x" {
			t.Error("ListRegistered must not contain unknown-x")
		}
	}
}

func TestCreate_Registered(t *testing.T) {
	Register("factory-test-kind", func(cfg core.ProviderConfig) (core.Provider, error) {
		return &stubProvider{cfg: cfg, valid: true}, nil
	})

	p, err := Create(core.ProviderConfig{ProviderName: "factory-test-kind", ModelID: "m1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Config().ModelID != "m1" {
		t.Errorf("ModelID = %q, want m1", p.Config().ModelID)
	}
}

func TestListRegistered_Sorted(t *testing.T) {
	Register("zz-test-kind", func(cfg core.ProviderConfig) (core.Provider, error) {
		return &stubProvider{cfg: cfg}, nil
	})
	Register("aa-test-kind", func(cfg core.ProviderConfig) (core.Provider, error) {
		return &stubProvider{cfg: cfg}, nil
	})

	names := ListRegistered()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("ListRegistered not sorted: %v", names)
		}
	}
}
