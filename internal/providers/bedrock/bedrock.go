// Package bedrock provides AWS Bedrock integration for the streaming gateway
// via the Converse API.
package bedrock

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"warmstream/internal/core"
	"warmstream/internal/providers"
)

func init() {
	providers.Register("bedrock", func(cfg core.ProviderConfig) (core.Provider, error) {
		if cfg.Region == "" {
			return nil, core.NewConfigurationError("bedrock provider requires region", nil)
		}
		return New(context.Background(), cfg)
	})
}

// converseAPI abstracts the Bedrock runtime methods for testability.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Provider implements the core.Provider interface via the AWS Bedrock Converse API.
type Provider struct {
	cfg    core.ProviderConfig
	client converseAPI
}

// New creates a Bedrock provider using the default AWS credential chain.
func New(ctx context.Context, cfg core.ProviderConfig) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, core.NewConfigurationError("failed to load aws config: "+err.Error(), err)
	}

	return &Provider{
		cfg:    cfg,
		client: bedrockruntime.NewFromConfig(awsCfg),
	}, nil
}

// NewWithClient creates a Provider with an injected Bedrock client (for testing).
func NewWithClient(cfg core.ProviderConfig, client converseAPI) *Provider {
	return &Provider{cfg: cfg, client: client}
}

// Config returns the configuration this provider was constructed from
func (p *Provider) Config() core.ProviderConfig {
	return p.cfg
}

// StreamCompletion drives one ConverseStream call and translates its event
// stream into StreamChunks.
func (p *Provider) StreamCompletion(ctx context.Context, req *core.StreamingRequest) (<-chan core.StreamEvent, error) {
	output, err := p.client.ConverseStream(ctx, p.convertRequest(req))
	if err != nil {
		return nil, mapBedrockError(err)
	}

	ch := make(chan core.StreamEvent, 16)
	go func() {
		defer close(ch)
		stream := output.GetStream()
		defer func() {
			_ = stream.Close() //nolint:errcheck
		}()

		send := func(ev core.StreamEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		finished := false
		for evt := range stream.Events() {
			ev := translateStreamEvent(evt)
			if ev == nil {
				continue
			}
			if !send(*ev) {
				return
			}
			if ev.Chunk.IsFinal {
				// Metadata events after message_stop carry only usage
				// accounting; the sequence is complete.
				finished = true
				break
			}
		}

		if err := stream.Err(); err != nil && !finished {
			if ctx.Err() != nil {
				return
			}
			send(core.StreamEvent{Err: mapBedrockError(err)})
			return
		}
		if !finished {
			send(core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}})
		}
	}()

	return ch, nil
}

// translateStreamEvent maps one Converse stream event onto a StreamEvent.
// Events with no client-visible payload (block starts, metadata) map to nil.
func translateStreamEvent(evt types.ConverseStreamOutput) *core.StreamEvent {
	switch e := evt.(type) {
	case *types.ConverseStreamOutputMemberContentBlockDelta:
		if d, ok := e.Value.Delta.(*types.ContentBlockDeltaMemberText); ok && d.Value != "" {
			return &core.StreamEvent{Chunk: core.StreamChunk{Content: d.Value}}
		}
		return nil
	case *types.ConverseStreamOutputMemberMessageStop:
		return &core.StreamEvent{Chunk: core.StreamChunk{IsFinal: true}}
	default:
		return nil
	}
}

// ValidateConnection issues a one-token Converse round trip to confirm the
// model is reachable and credentials are valid. All failures become false.
func (p *Provider) ValidateConnection(ctx context.Context) bool {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.cfg.ModelID),
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: "Hi"},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(1),
		},
	}

	_, err := p.client.Converse(ctx, input)
	return err == nil
}

// convertRequest maps a StreamingRequest onto a ConverseStream input,
// extracting system messages into the dedicated field.
func (p *Provider) convertRequest(req *core.StreamingRequest) *bedrockruntime.ConverseStreamInput {
	input := &bedrockruntime.ConverseStreamInput{
		ModelId: aws.String(p.cfg.ModelID),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(req.MaxTokens)),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}

	for _, m := range req.Messages {
		if m.Role == core.RoleSystem {
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}

		role := types.ConversationRoleUser
		if m.Role == core.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, types.Message{
			Role: role,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: m.Content},
			},
		})
	}

	return input
}

// mapBedrockError converts AWS SDK errors into gateway backend errors,
// surfacing the smithy error code when available.
func mapBedrockError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return core.NewBackendError("bedrock", apiErr.ErrorCode()+": "+apiErr.ErrorMessage(), err)
	}
	return core.NewBackendError("bedrock", err.Error(), err)
}
