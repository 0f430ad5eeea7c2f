// Package anthropic provides Anthropic API integration for the streaming gateway.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"warmstream/internal/core"
	"warmstream/internal/httpclient"
	"warmstream/internal/providers"
)

const (
	defaultBaseURL      = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

func init() {
	// Self-register with the factory
	providers.Register("anthropic", func(cfg core.ProviderConfig) (core.Provider, error) {
		if cfg.APIKey == "" {
			return nil, core.NewConfigurationError("anthropic provider requires api_key", nil)
		}
		return New(cfg), nil
	})
}

// Provider implements the core.Provider interface for Anthropic
type Provider struct {
	httpClient *http.Client
	cfg        core.ProviderConfig
	baseURL    string
}

// New creates a new Anthropic provider
func New(cfg core.ProviderConfig) *Provider {
	return &Provider{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: httpclient.NewDefaultHTTPClient(),
	}
}

// NewWithHTTPClient creates a new Anthropic provider with a custom HTTP client
func NewWithHTTPClient(cfg core.ProviderConfig, client *http.Client) *Provider {
	return &Provider{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: client,
	}
}

// SetBaseURL allows configuring a custom base URL for the provider
func (p *Provider) SetBaseURL(url string) {
	p.baseURL = url
}

// Config returns the configuration this provider was constructed from
func (p *Provider) Config() core.ProviderConfig {
	return p.cfg
}

// anthropicRequest represents the Anthropic Messages API request format
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// anthropicMessage represents a message in Anthropic format
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicStreamEvent represents a streaming event from Anthropic
type anthropicStreamEvent struct {
	Type  string          `json:"type"`
	Delta *anthropicDelta `json:"delta,omitempty"`
	Error *anthropicError `json:"error,omitempty"`
}

// anthropicDelta represents a delta in streaming response
type anthropicDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// anthropicError represents an error event payload
type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// convertRequest converts a core.StreamingRequest to Anthropic format,
// extracting the system message into the dedicated field.
func (p *Provider) convertRequest(req *core.StreamingRequest) *anthropicRequest {
	temp := req.Temperature
	out := &anthropicRequest{
		Model:       p.cfg.ModelID,
		Messages:    make([]anthropicMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: &temp,
		Stream:      true,
	}

	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem {
			out.System = msg.Content
			continue
		}
		out.Messages = append(out.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	return out
}

// StreamCompletion sends a streaming Messages API request to Anthropic and
// decodes its SSE stream into StreamChunks.
func (p *Provider) StreamCompletion(ctx context.Context, req *core.StreamingRequest) (<-chan core.StreamEvent, error) {
	body, err := json.Marshal(p.convertRequest(req))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewBackendError("anthropic", "failed to send request: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close() //nolint:errcheck
		return nil, core.NewBackendError("anthropic",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, parseErrorMessage(respBody)), nil)
	}

	ch := make(chan core.StreamEvent, 16)
	go p.consumeStream(ctx, resp.Body, ch)
	return ch, nil
}

// consumeStream reads the SSE body and pushes decoded events. It always
// delivers a terminal event (final chunk or error) before closing the channel.
func (p *Provider) consumeStream(ctx context.Context, body io.ReadCloser, ch chan<- core.StreamEvent) {
	defer close(ch)
	defer func() {
		_ = body.Close() //nolint:errcheck
	}()

	send := func(ev core.StreamEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Stream ended without message_stop; still terminate the
				// sequence with a final chunk.
				send(core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}})
				return
			}
			if ctx.Err() != nil {
				return
			}
			send(core.StreamEvent{Err: core.NewBackendError("anthropic", "stream read failed: "+err.Error(), err)})
			return
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 || bytes.HasPrefix(line, []byte("event:")) {
			continue
		}
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}

		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))

		var event anthropicStreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta != nil && event.Delta.Text != "" {
				if !send(core.StreamEvent{Chunk: core.StreamChunk{Content: event.Delta.Text}}) {
					return
				}
			}
		case "message_stop":
			send(core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}})
			return
		case "error":
			msg := "stream error"
			if event.Error != nil {
				msg = event.Error.Message
			}
			send(core.StreamEvent{Err: core.NewBackendError("anthropic", msg, nil)})
			return
		}
	}
}

// ValidateConnection performs a lightweight round trip against the models
// endpoint. All failures are converted to false.
func (p *Provider) ValidateConnection(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	return resp.StatusCode == http.StatusOK
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}

// parseErrorMessage extracts a human-readable message from an Anthropic error body.
func parseErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}
