package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusai/internal/apperr"
	"nexusai/internal/llm/adapter"
	"nexusai/internal/models"
)

type staticKeys map[models.Provider]string

func (s staticKeys) APIKey(p models.Provider) (string, error) {
	if k, ok := s[p]; ok {
		return k, nil
	}
	return "", errors.New("no key")
}

var catalog = []models.LLMModel{
	{Provider: models.ProviderGemini, APIName: "gemini-2.0-flash", Format: models.FormatGemini},
	{Provider: models.ProviderGroq, APIName: "llama3-8b-8192", Format: models.FormatOpenAI, BaseURL: "https://api.groq.com/openai/v1"},
	{Provider: models.ProviderClaude, APIName: "claude-3-opus-20240229", Format: models.FormatClaude, MaxTokens: 1000},
	{Provider: models.ProviderDeepSeek, APIName: "deepseek-chat", Format: models.FormatOpenAI, BaseURL: "https://api.deepseek.com"},
}

func TestNewRegistry_OneAdapterPerProvider(t *testing.T) {
	reg, err := NewRegistry(catalog, staticKeys{})
	require.NoError(t, err)
	assert.Equal(t, models.Providers, reg.Providers())

	a, err := reg.Get(models.ProviderDeepSeek)
	require.NoError(t, err)
	assert.IsType(t, &adapter.OpenAIAdapter{}, a)

	a, err = reg.Get(models.ProviderGemini)
	require.NoError(t, err)
	assert.IsType(t, &adapter.GeminiAdapter{}, a)

	a, err = reg.Get(models.ProviderClaude)
	require.NoError(t, err)
	assert.IsType(t, &adapter.ClaudeAdapter{}, a)
}

func TestNewRegistry_RejectsUnknownFormat(t *testing.T) {
	_, err := NewRegistry([]models.LLMModel{{Provider: models.ProviderGroq, Format: "soap"}}, staticKeys{})
	assert.Error(t, err)
}

func TestMissingKeySurfacesAsStreamError(t *testing.T) {
	reg, err := NewRegistry(catalog, staticKeys{})
	require.NoError(t, err)

	for _, p := range models.Providers {
		a, err := reg.Get(p)
		require.NoError(t, err)
		req, err := a.BuildRequest([]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, "sys")
		require.NoError(t, err)

		_, err = adapter.Collect(a.Stream(context.Background(), req), nil)
		assert.ErrorIs(t, err, apperr.ErrProvider, string(p))
		assert.Contains(t, err.Error(), "no key", string(p))
	}
}

func TestNewChatModel_RequiresKey(t *testing.T) {
	_, err := NewChatModel(context.Background(), catalog[1], " ", ModelOptions{})
	assert.Error(t, err)
}

func TestNewChatModel_OpenAICompatible(t *testing.T) {
	cm, err := NewChatModel(context.Background(), catalog[1], "test-key", ModelOptions{})
	require.NoError(t, err)
	assert.NotNil(t, cm)
}

func TestNewChatModel_UnknownFormat(t *testing.T) {
	_, err := NewChatModel(context.Background(), models.LLMModel{Provider: "X", Format: "soap"}, "k", ModelOptions{})
	assert.Error(t, err)
}

func TestChatModelFactory_LookupFailure(t *testing.T) {
	factory := ChatModelFactory(func(p models.Provider) (*models.LLMModel, error) {
		return nil, apperr.NotFound("nope")
	}, staticKeys{}, ModelOptions{})

	_, err := factory(context.Background(), models.ProviderGroq)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt("sql.txt", map[string]string{
		"COLUMNS": "a, b",
		"SCHEMA":  "a INTEGER, b TEXT",
		"PREVIEW": "[]",
		"REQUEST": "count rows",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Columns: a, b")
	assert.Contains(t, out, `Convert this request to SQL: "count rows"`)
	assert.Contains(t, out, "Return ONLY the SQL query")
	assert.NotContains(t, out, "{{")

	_, err = LoadPrompt("missing.txt")
	assert.Error(t, err)
}
