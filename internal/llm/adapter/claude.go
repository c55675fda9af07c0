package adapter

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

const DefaultClaudeMaxTokens = 1000

// ClaudeStreamer is the streaming half of the Anthropic messages service.
type ClaudeStreamer interface {
	NewStreaming(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

type ClaudeFactory func(ctx context.Context) (ClaudeStreamer, error)

// ClaudeRequest wraps the Messages API parameters. The system prompt is
// System[0] unless it was empty; lifted system-role entries follow it.
type ClaudeRequest struct {
	Params anthropic.MessageNewParams

	noPrompt bool
}

func (ClaudeRequest) Format() string { return models.FormatClaude }

type ClaudeAdapter struct {
	model     string
	maxTokens int64
	newClient ClaudeFactory
}

func NewClaudeAdapter(modelName string, maxTokens int, newClient ClaudeFactory) *ClaudeAdapter {
	if maxTokens <= 0 {
		maxTokens = DefaultClaudeMaxTokens
	}
	return &ClaudeAdapter{model: modelName, maxTokens: int64(maxTokens), newClient: newClient}
}

func (a *ClaudeAdapter) Provider() models.Provider { return models.ProviderClaude }

func (a *ClaudeAdapter) BuildRequest(msgs []models.ChatMessage, systemPrompt string) (Request, error) {
	conversation, system, err := splitSystem(msgs)
	if err != nil {
		return nil, err
	}

	params := make([]anthropic.MessageParam, 0, len(conversation))
	for _, m := range conversation {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == models.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(block))
		} else {
			params = append(params, anthropic.NewUserMessage(block))
		}
	}

	// The API rejects empty text blocks.
	var sys []anthropic.TextBlockParam
	if systemPrompt != "" {
		sys = append(sys, anthropic.TextBlockParam{Text: systemPrompt})
	}
	for _, s := range system {
		sys = append(sys, anthropic.TextBlockParam{Text: s})
	}
	return &ClaudeRequest{
		Params: anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: a.maxTokens,
			System:    sys,
			Messages:  params,
		},
		noPrompt: systemPrompt == "",
	}, nil
}

// DecodeRequest returns lifted system entries ahead of the conversation.
func (a *ClaudeAdapter) DecodeRequest(req Request) ([]models.ChatMessage, string, error) {
	r, ok := req.(*ClaudeRequest)
	if !ok {
		return nil, "", wrongRequest(models.FormatClaude, req)
	}

	var (
		prompt string
		out    []models.ChatMessage
	)
	lifted := r.Params.System
	if !r.noPrompt && len(lifted) > 0 {
		prompt = lifted[0].Text
		lifted = lifted[1:]
	}
	for _, s := range lifted {
		out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: s.Text})
	}

	for _, m := range r.Params.Messages {
		var role models.Role
		switch m.Role {
		case anthropic.MessageParamRoleUser:
			role = models.RoleUser
		case anthropic.MessageParamRoleAssistant:
			role = models.RoleAssistant
		default:
			return nil, "", fmt.Errorf("unsupported claude role %q", m.Role)
		}
		var sb strings.Builder
		for _, block := range m.Content {
			if block.OfText != nil {
				sb.WriteString(block.OfText.Text)
			}
		}
		out = append(out, models.ChatMessage{Role: role, Content: sb.String()})
	}
	return out, prompt, nil
}

func (a *ClaudeAdapter) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	r, ok := req.(*ClaudeRequest)
	if !ok {
		return failed(wrongRequest(models.FormatClaude, req))
	}
	return singleUse(func(yield func(string, error) bool) {
		if a.newClient == nil {
			yield("", apperr.Provider(fmt.Errorf("claude client is not configured")))
			return
		}
		client, err := a.newClient(ctx)
		if err != nil {
			yield("", apperr.Provider(fmt.Errorf("create claude client: %w", err)))
			return
		}
		stream := client.NewStreaming(ctx, r.Params)
		if stream == nil {
			yield("", apperr.Provider(fmt.Errorf("claude returned no stream")))
			return
		}
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
				continue
			}
			if !yield(event.Delta.Text, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", apperr.Provider(err))
		}
	})
}
