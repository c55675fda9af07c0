package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "NEXUS_CONFIG"
	EnvAddr       = "NEXUS_ADDR"
	EnvDBPath     = "NEXUS_DB_PATH"
	EnvJWTSecret  = "JWT_SECRET"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"
	EnvMaxHistory = "NEXUS_MAX_HISTORY"
)

const (
	DefaultAddr       = ":8501"
	DefaultMaxHistory = 20
	DefaultProvider   = "Gemini"
	DefaultTokenTTL   = 24 * time.Hour

	MinMemory = 5
	MaxMemory = 50
)

// DefaultSystemPrompt is the persona prepended to every chat request.
const DefaultSystemPrompt = "You are Buddy, a friendly and knowledgeable AI assistant built into Nexus.ai. " +
	"Answer clearly and concisely, use Markdown when it helps readability, and say so when you are unsure."

// Config is the resolved server configuration.
type Config struct {
	Addr    string     `yaml:"addr"`
	DBPath  string     `yaml:"db-path"`
	JWT     JWTConfig  `yaml:"jwt"`
	Log     LogConfig  `yaml:"log"`
	Chat    ChatConfig `yaml:"chat"`
	Keyring bool       `yaml:"keyring"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ChatConfig struct {
	MaxHistory      int    `yaml:"max-history"`
	DefaultProvider string `yaml:"default-provider"`
	SystemPrompt    string `yaml:"system-prompt"`
	// PersistSessions stores saved chats in SQLite instead of memory.
	PersistSessions bool `yaml:"persist-sessions"`
}

// ErrMissingJWTSecret is returned when no token signing secret is configured.
var ErrMissingJWTSecret = errors.New("missing jwt secret (set `jwt.secret` in config file or JWT_SECRET)")

// Default returns the configuration used when no file or environment is set.
func Default() Config {
	return Config{
		Addr: DefaultAddr,
		JWT:  JWTConfig{Expiry: DefaultTokenTTL},
		Log:  LogConfig{Level: "info", Format: "text"},
		Chat: ChatConfig{
			MaxHistory:      DefaultMaxHistory,
			DefaultProvider: DefaultProvider,
			SystemPrompt:    DefaultSystemPrompt,
			PersistSessions: true,
		},
		Keyring: true,
	}
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// LoadDotEnv loads a .env file next to the working directory when present.
func LoadDotEnv(path string) {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("could not load .env file")
	}
}

// Load reads the YAML file at path (a missing file is not an error), then
// applies environment overrides and defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.WithField("path", path).Debug("config file not found, using defaults")
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return Config{}, ErrMissingJWTSecret
	}
	if cfg.Chat.MaxHistory < MinMemory || cfg.Chat.MaxHistory > MaxMemory {
		return Config{}, fmt.Errorf("chat.max-history must be between %d and %d, got %d", MinMemory, MaxMemory, cfg.Chat.MaxHistory)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJWTSecret)); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxHistory)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxHistory = n
		} else {
			log.WithField("value", v).Warn("ignoring invalid NEXUS_MAX_HISTORY")
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = DefaultTokenTTL
	}
	if cfg.Chat.MaxHistory == 0 {
		cfg.Chat.MaxHistory = DefaultMaxHistory
	}
	if strings.TrimSpace(cfg.Chat.DefaultProvider) == "" {
		cfg.Chat.DefaultProvider = DefaultProvider
	}
	if strings.TrimSpace(cfg.Chat.SystemPrompt) == "" {
		cfg.Chat.SystemPrompt = DefaultSystemPrompt
	}
}

// ConfigureLogging applies the log level and format to the global logrus logger.
func ConfigureLogging(lc LogConfig) error {
	level, err := log.ParseLevel(strings.TrimSpace(lc.Level))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("log format %q is not one of text, json", lc.Format)
	}
	return nil
}
