package models

import "strings"

// Provider identifies a chat backend the user can select.
type Provider string

const (
	ProviderGemini   Provider = "Gemini"
	ProviderGroq     Provider = "Groq"
	ProviderClaude   Provider = "Claude"
	ProviderDeepSeek Provider = "DeepSeek"
)

// Providers lists every supported provider in menu order.
var Providers = []Provider{ProviderGemini, ProviderGroq, ProviderClaude, ProviderDeepSeek}

// ParseProvider resolves a provider name case-insensitively.
func ParseProvider(name string) (Provider, bool) {
	name = strings.TrimSpace(name)
	for _, p := range Providers {
		if strings.EqualFold(string(p), name) {
			return p, true
		}
	}
	return "", false
}

// Request formats understood by the adapters.
const (
	FormatOpenAI = "openai"
	FormatGemini = "gemini"
	FormatClaude = "claude"
)

// LLMModel describes the model used for one provider, as exposed to the UI.
type LLMModel struct {
	Provider    Provider `json:"provider"`
	DisplayName string   `json:"displayName"`
	APIName     string   `json:"apiName"`
	Format      string   `json:"format"`
	BaseURL     string   `json:"baseUrl,omitempty"`
	APIKeyEnv   string   `json:"apiKeyEnv"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Configured  bool     `json:"configured"`
}
