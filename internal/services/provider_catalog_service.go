package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"nexusai/internal/apperr"
	"nexusai/internal/assets"
	"nexusai/internal/models"
)

// ProviderCatalogService exposes the embedded provider catalogue together
// with the API key needed to call each provider.
type ProviderCatalogService interface {
	Startup() error
	List() []models.LLMModel
	Get(provider models.Provider) (*models.LLMModel, error)
	APIKey(provider models.Provider) (string, error)
}

type providerCatalogService struct {
	keys *KeyringService
	data []byte

	mu     sync.RWMutex
	order  []models.Provider
	models map[models.Provider]*catalogModel
}

type catalogModel struct {
	Provider    models.Provider
	DisplayName string
	APIName     string
	Format      string
	BaseURL     string
	APIKeyEnv   string
	MaxTokens   int
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	APIName     string `json:"apiName"`
	Format      string `json:"format"`
	BaseURL     string `json:"baseUrl,omitempty"`
	APIKeyEnv   string `json:"apiKeyEnv"`
	MaxTokens   int    `json:"maxTokens,omitempty"`
}

func NewProviderCatalogService(keys *KeyringService) ProviderCatalogService {
	return NewProviderCatalogServiceFromData(keys, assets.ModelsData)
}

// NewProviderCatalogServiceFromData is NewProviderCatalogService with an
// explicit catalogue document.
func NewProviderCatalogServiceFromData(keys *KeyringService, data []byte) ProviderCatalogService {
	return &providerCatalogService{
		keys:   keys,
		data:   data,
		models: make(map[models.Provider]*catalogModel),
	}
}

// ProviderKeyEnvNames reads the API key variable of every catalogue entry.
func ProviderKeyEnvNames(data []byte) (map[string]string, error) {
	var parsed rawModelFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse models asset: %w", err)
	}
	out := make(map[string]string, len(parsed.Providers))
	for _, p := range parsed.Providers {
		if id := strings.TrimSpace(p.ID); id != "" {
			out[id] = strings.TrimSpace(p.APIKeyEnv)
		}
	}
	return out, nil
}

func (s *providerCatalogService) Startup() error {
	var parsed rawModelFile
	if err := json.Unmarshal(s.data, &parsed); err != nil {
		return fmt.Errorf("parse models asset: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	for _, raw := range parsed.Providers {
		provider, ok := models.ParseProvider(raw.ID)
		if !ok {
			return fmt.Errorf("models asset: unknown provider %q", raw.ID)
		}
		format := strings.TrimSpace(raw.Format)
		switch format {
		case models.FormatOpenAI, models.FormatGemini, models.FormatClaude:
		default:
			return fmt.Errorf("models asset: provider %s has unknown format %q", provider, raw.Format)
		}
		if strings.TrimSpace(raw.APIName) == "" {
			return fmt.Errorf("models asset: provider %s has no apiName", provider)
		}
		if _, dup := s.models[provider]; !dup {
			s.order = append(s.order, provider)
		}
		s.models[provider] = &catalogModel{
			Provider:    provider,
			DisplayName: strings.TrimSpace(raw.DisplayName),
			APIName:     strings.TrimSpace(raw.APIName),
			Format:      format,
			BaseURL:     strings.TrimSpace(raw.BaseURL),
			APIKeyEnv:   strings.TrimSpace(raw.APIKeyEnv),
			MaxTokens:   raw.MaxTokens,
		}
	}
	return nil
}

func (s *providerCatalogService) List() []models.LLMModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LLMModel, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, s.toLLMModel(s.models[p]))
	}
	return out
}

func (s *providerCatalogService) Get(provider models.Provider) (*models.LLMModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mdl, ok := s.models[provider]
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("provider %s is not available", provider))
	}
	out := s.toLLMModel(mdl)
	return &out, nil
}

func (s *providerCatalogService) APIKey(provider models.Provider) (string, error) {
	if s.keys == nil {
		return "", fmt.Errorf("key store not configured")
	}
	key, err := s.keys.GetApiKey(string(provider))
	if err != nil {
		return "", fmt.Errorf("API key for %s: %w", provider, err)
	}
	return key, nil
}

func (s *providerCatalogService) toLLMModel(mdl *catalogModel) models.LLMModel {
	configured := false
	if s.keys != nil {
		configured = s.keys.HasApiKey(string(mdl.Provider))
	}
	return models.LLMModel{
		Provider:    mdl.Provider,
		DisplayName: mdl.DisplayName,
		APIName:     mdl.APIName,
		Format:      mdl.Format,
		BaseURL:     mdl.BaseURL,
		APIKeyEnv:   mdl.APIKeyEnv,
		MaxTokens:   mdl.MaxTokens,
		Configured:  configured,
	}
}
