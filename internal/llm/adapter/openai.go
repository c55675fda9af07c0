package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

// ChatModelFactory builds an eino chat model on demand.
type ChatModelFactory func(ctx context.Context) (model.BaseChatModel, error)

// OpenAIRequest is the flat role/content list used by OpenAI-compatible
// endpoints. Messages[0] is always the system prompt.
type OpenAIRequest struct {
	Model    string
	Messages []*schema.Message
}

func (OpenAIRequest) Format() string { return models.FormatOpenAI }

// OpenAIAdapter serves Groq and DeepSeek through eino's OpenAI chat model.
type OpenAIAdapter struct {
	provider models.Provider
	model    string
	newModel ChatModelFactory
}

func NewOpenAIAdapter(provider models.Provider, modelName string, newModel ChatModelFactory) *OpenAIAdapter {
	return &OpenAIAdapter{provider: provider, model: modelName, newModel: newModel}
}

func (a *OpenAIAdapter) Provider() models.Provider { return a.provider }

func (a *OpenAIAdapter) BuildRequest(msgs []models.ChatMessage, systemPrompt string) (Request, error) {
	out := make([]*schema.Message, 0, len(msgs)+1)
	out = append(out, schema.SystemMessage(systemPrompt))
	for _, m := range msgs {
		if err := checkRole(m); err != nil {
			return nil, err
		}
		switch m.Role {
		case models.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case models.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		case models.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		}
	}
	return &OpenAIRequest{Model: a.model, Messages: out}, nil
}

func (a *OpenAIAdapter) DecodeRequest(req Request) ([]models.ChatMessage, string, error) {
	r, ok := req.(*OpenAIRequest)
	if !ok {
		return nil, "", wrongRequest(models.FormatOpenAI, req)
	}
	if len(r.Messages) == 0 || r.Messages[0].Role != schema.System {
		return nil, "", fmt.Errorf("openai request must start with the system prompt")
	}
	out := make([]models.ChatMessage, 0, len(r.Messages)-1)
	for _, m := range r.Messages[1:] {
		role, err := fromSchemaRole(m.Role)
		if err != nil {
			return nil, "", err
		}
		out = append(out, models.ChatMessage{Role: role, Content: m.Content})
	}
	return out, r.Messages[0].Content, nil
}

func (a *OpenAIAdapter) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	r, ok := req.(*OpenAIRequest)
	if !ok {
		return failed(wrongRequest(models.FormatOpenAI, req))
	}
	return singleUse(func(yield func(string, error) bool) {
		if a.newModel == nil {
			yield("", apperr.Provider(fmt.Errorf("%s client is not configured", a.provider)))
			return
		}
		cm, err := a.newModel(ctx)
		if err != nil {
			yield("", apperr.Provider(fmt.Errorf("create %s client: %w", a.provider, err)))
			return
		}
		reader, err := cm.Stream(ctx, r.Messages)
		if err != nil {
			yield("", apperr.Provider(err))
			return
		}
		if reader == nil {
			yield("", apperr.Provider(fmt.Errorf("%s returned no stream", a.provider)))
			return
		}
		defer reader.Close()

		for {
			msg, recvErr := reader.Recv()
			if recvErr != nil {
				if errors.Is(recvErr, io.EOF) {
					return
				}
				yield("", apperr.Provider(recvErr))
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}
			if !yield(msg.Content, nil) {
				return
			}
		}
	})
}

func fromSchemaRole(r schema.RoleType) (models.Role, error) {
	switch r {
	case schema.User:
		return models.RoleUser, nil
	case schema.Assistant:
		return models.RoleAssistant, nil
	case schema.System:
		return models.RoleSystem, nil
	default:
		return "", fmt.Errorf("unsupported message role %q", r)
	}
}
