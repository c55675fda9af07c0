package services

import (
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/99designs/keyring"
	log "github.com/sirupsen/logrus"
)

const serviceName = "nexusai"

// ErrApiKeyMissing is returned when neither the environment nor the keyring
// holds a key for a provider.
var ErrApiKeyMissing = errors.New("API key is not configured")

// OpenSystemKeyring opens the OS credential store used for provider API keys.
func OpenSystemKeyring() (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
	})
}

// KeyringService resolves provider API keys. Environment variables win; the
// keyring is the fallback and the only place keys can be written to.
type KeyringService struct {
	ring      keyring.Keyring
	envNames  map[string]string
	lookupEnv func(string) (string, bool)
}

// NewKeyringService builds a key store. ring may be nil, in which case only
// environment variables are consulted. envNames maps provider to variable name.
func NewKeyringService(ring keyring.Keyring, envNames map[string]string) *KeyringService {
	names := make(map[string]string, len(envNames))
	for provider, env := range envNames {
		names[provider] = strings.TrimSpace(env)
	}
	return &KeyringService{
		ring:      ring,
		envNames:  names,
		lookupEnv: os.LookupEnv,
	}
}

func (s *KeyringService) StoreApiKey(provider string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	if provider == "" {
		return errors.New("provider is required")
	}
	if s.ring == nil {
		return errors.New("keyring is not available")
	}

	return s.ring.Set(keyring.Item{
		Key:         provider,
		Data:        apiKey,
		Label:       provider + " API key",
		Description: "API key for " + provider + " used by Nexus.ai",
	})
}

func (s *KeyringService) GetApiKey(provider string) (string, error) {
	if provider == "" {
		return "", errors.New("provider is required")
	}
	if env := s.envNames[provider]; env != "" {
		if v, ok := s.lookupEnv(env); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	if s.ring == nil {
		return "", ErrApiKeyMissing
	}

	item, err := s.ring.Get(provider)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrApiKeyMissing
		}
		return "", err
	}
	key := strings.TrimSpace(string(item.Data))
	if key == "" {
		return "", ErrApiKeyMissing
	}
	return key, nil
}

func (s *KeyringService) HasApiKey(provider string) bool {
	key, err := s.GetApiKey(provider)
	if err != nil && !errors.Is(err, ErrApiKeyMissing) {
		log.WithError(err).WithField("provider", provider).Warn("keyring lookup failed")
	}
	return err == nil && key != ""
}

func (s *KeyringService) DeleteApiKey(provider string) error {
	if provider == "" {
		return errors.New("provider is required")
	}
	if s.ring == nil {
		return errors.New("keyring is not available")
	}
	err := s.ring.Remove(provider)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// ListApiKeys describes the providers that currently have a key in the keyring.
func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	if s.ring == nil {
		return nil, nil
	}
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var results []map[string]string
	for _, provider := range keys {
		if _, err := s.ring.Get(provider); err != nil {
			continue
		}
		results = append(results, map[string]string{
			"provider":    provider,
			"label":       provider + " API key",
			"description": "API key for " + provider + " used by Nexus.ai",
		})
	}
	return results, nil
}
