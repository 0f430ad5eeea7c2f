package core

import "fmt"

// Role identifies the author of a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single message in the conversation.
// Message order within a request is significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StreamingRequest represents one streaming chat completion request.
// One request maps to exactly one provider invocation.
type StreamingRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// Validate checks the request fields and returns an invalid-request error
// describing the first violation found.
func (r *StreamingRequest) Validate() error {
	if len(r.Messages) == 0 {
		return NewInvalidRequestError("messages must not be empty", nil)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return NewInvalidRequestError(fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role), nil)
		}
	}
	if r.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens must be positive", nil)
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return NewInvalidRequestError("temperature must be between 0.0 and 2.0", nil)
	}
	return nil
}

// ProviderConfig fully describes how to construct a provider instance.
// Two configs with equal fields produce behaviorally equivalent providers.
type ProviderConfig struct {
	ProviderName string `json:"provider_name"`
	ModelID      string `json:"model_id"`
	Region       string `json:"region,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
}

// StreamChunk is one element of a provider's incremental output.
// Exactly one chunk in a sequence has IsFinal set, and it is always the last;
// Content may be empty on the final chunk.
type StreamChunk struct {
	Content string `json:"content,omitempty"`
	IsFinal bool   `json:"is_final"`
}

// StreamEvent is the carrier delivered on a completion stream channel.
// A non-nil Err is terminal: the provider emits it once and closes the channel,
// and any output already delivered is not retracted.
type StreamEvent struct {
	Chunk StreamChunk
	Err   error
}
