// Package openai provides OpenAI API integration for the streaming gateway.
package openai

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

const defaultBaseURL = "https://api.openai.com/v1"

// doneMarker terminates an OpenAI SSE stream.
const doneMarker = "[DONE]"

func init() {
	providers.Register("openai", func(cfg core.ProviderConfig) (core.Provider, error) {
		if cfg.APIKey == "" {
			return nil, core.NewConfigurationError("openai provider requires api_key", nil)
		}
		return New(cfg), nil
	})
}

// Provider implements the core.Provider interface for OpenAI
type Provider struct {
	httpClient *http.Client
	cfg        core.ProviderConfig
	baseURL    string
}

// New creates a new OpenAI provider
func New(cfg core.ProviderConfig) *Provider {
	return &Provider{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: httpclient.NewDefaultHTTPClient(),
	}
}

// NewWithHTTPClient creates a new OpenAI provider with a custom HTTP client
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

// openaiRequest is the chat completions request body
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiStreamChunk is one decoded SSE payload from the chat completions stream
type openaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *Provider) convertRequest(req *core.StreamingRequest) *openaiRequest {
	temp := req.Temperature
	out := &openaiRequest{
		Model:       p.cfg.ModelID,
		Messages:    make([]openaiMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: &temp,
		Stream:      true,
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, openaiMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// StreamCompletion sends a streaming chat completion request to OpenAI and
// decodes its SSE stream into StreamChunks.
func (p *Provider) StreamCompletion(ctx context.Context, req *core.StreamingRequest) (<-chan core.StreamEvent, error) {
	body, err := json.Marshal(p.convertRequest(req))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewBackendError("openai", "failed to send request: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close() //nolint:errcheck
		return nil, core.NewBackendError("openai",
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	ch := make(chan core.StreamEvent, 16)
	go p.consumeStream(ctx, resp.Body, ch)
	return ch, nil
}

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

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}

		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if string(data) == doneMarker {
			send(core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}})
			return
		}

		var chunk openaiStreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if content := chunk.Choices[0].Delta.Content; content != "" {
			if !send(core.StreamEvent{Chunk: core.StreamChunk{Content: content}}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		send(core.StreamEvent{Err: core.NewBackendError("openai", "stream read failed: "+err.Error(), err)})
		return
	}

	// Stream ended without an explicit [DONE]; terminate the sequence anyway.
	send(core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}})
}

// ValidateConnection performs a lightweight round trip against the models
// endpoint. All failures are converted to false.
func (p *Provider) ValidateConnection(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	return resp.StatusCode == http.StatusOK
}
