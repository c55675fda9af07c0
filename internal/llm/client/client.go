package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"nexusai/internal/llm/adapter"
	"nexusai/internal/models"
)

// KeySource returns the API key for a provider at call time.
type KeySource interface {
	APIKey(provider models.Provider) (string, error)
}

// ModelOptions tunes an eino chat model.
type ModelOptions struct {
	Temperature *float32
}

// NewChatModel builds an eino chat model for the provider described by mdl.
func NewChatModel(ctx context.Context, mdl models.LLMModel, apiKey string, opts ModelOptions) (model.BaseChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key for %s is not configured", mdl.Provider)
	}

	switch mdl.Format {
	case models.FormatOpenAI:
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      apiKey,
			BaseURL:     mdl.BaseURL,
			Model:       mdl.APIName,
			Temperature: opts.Temperature,
		})
		if err != nil {
			log.WithError(err).WithField("provider", mdl.Provider).Error("creating OpenAI-compatible client")
			return nil, err
		}
		return cm, nil
	case models.FormatGemini:
		gc, err := newGenAIClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      gc,
			Model:       mdl.APIName,
			Temperature: opts.Temperature,
		})
		if err != nil {
			log.WithError(err).Error("creating Gemini chat model")
			return nil, err
		}
		return cm, nil
	case models.FormatClaude:
		maxTokens := mdl.MaxTokens
		if maxTokens <= 0 {
			maxTokens = adapter.DefaultClaudeMaxTokens
		}
		cfg := &claude.Config{
			APIKey:      apiKey,
			Model:       mdl.APIName,
			MaxTokens:   maxTokens,
			Temperature: opts.Temperature,
		}
		if mdl.BaseURL != "" {
			base := mdl.BaseURL
			cfg.BaseURL = &base
		}
		cm, err := claude.NewChatModel(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("creating Claude chat model")
			return nil, err
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unsupported request format %q for %s", mdl.Format, mdl.Provider)
	}
}

func newGenAIClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.WithError(err).Error("creating genai client")
		return nil, err
	}
	return gc, nil
}

// NewGeminiStreamer returns the genai Models service for apiKey.
func NewGeminiStreamer(ctx context.Context, apiKey string) (adapter.GeminiStreamer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key for %s is not configured", models.ProviderGemini)
	}
	gc, err := newGenAIClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return gc.Models, nil
}

// NewClaudeStreamer returns the Anthropic messages service for apiKey.
func NewClaudeStreamer(apiKey, baseURL string) (adapter.ClaudeStreamer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key for %s is not configured", models.ProviderClaude)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := anthropic.NewClient(opts...)
	return &c.Messages, nil
}

// NewAdapter builds the adapter for one catalogue entry. Clients are created
// on every Stream call so a key added after startup is picked up.
func NewAdapter(mdl models.LLMModel, keys KeySource) (adapter.Adapter, error) {
	switch mdl.Format {
	case models.FormatOpenAI:
		return adapter.NewOpenAIAdapter(mdl.Provider, mdl.APIName, func(ctx context.Context) (model.BaseChatModel, error) {
			key, err := keys.APIKey(mdl.Provider)
			if err != nil {
				return nil, err
			}
			return NewChatModel(ctx, mdl, key, ModelOptions{})
		}), nil
	case models.FormatGemini:
		return adapter.NewGeminiAdapter(mdl.APIName, func(ctx context.Context) (adapter.GeminiStreamer, error) {
			key, err := keys.APIKey(mdl.Provider)
			if err != nil {
				return nil, err
			}
			return NewGeminiStreamer(ctx, key)
		}), nil
	case models.FormatClaude:
		return adapter.NewClaudeAdapter(mdl.APIName, mdl.MaxTokens, func(ctx context.Context) (adapter.ClaudeStreamer, error) {
			key, err := keys.APIKey(mdl.Provider)
			if err != nil {
				return nil, err
			}
			return NewClaudeStreamer(key, mdl.BaseURL)
		}), nil
	default:
		return nil, fmt.Errorf("unsupported request format %q for %s", mdl.Format, mdl.Provider)
	}
}

// NewRegistry builds one adapter per catalogue entry.
func NewRegistry(catalog []models.LLMModel, keys KeySource) (*adapter.Registry, error) {
	reg := adapter.NewRegistry()
	for _, mdl := range catalog {
		a, err := NewAdapter(mdl, keys)
		if err != nil {
			return nil, err
		}
		reg.Register(a)
	}
	return reg, nil
}

// ChatModelFactory returns a function building an eino chat model for any
// catalogue provider, used for one-shot generation such as SQL.
func ChatModelFactory(lookup func(models.Provider) (*models.LLMModel, error), keys KeySource, opts ModelOptions) func(ctx context.Context, p models.Provider) (model.BaseChatModel, error) {
	return func(ctx context.Context, p models.Provider) (model.BaseChatModel, error) {
		mdl, err := lookup(p)
		if err != nil {
			return nil, err
		}
		key, err := keys.APIKey(p)
		if err != nil {
			return nil, err
		}
		return NewChatModel(ctx, *mdl, key, opts)
	}
}
