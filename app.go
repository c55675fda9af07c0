package main

import (
	"fmt"

	"github.com/99designs/keyring"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"

	"nexusai/internal/assets"
	"nexusai/internal/chat"
	"nexusai/internal/config"
	"nexusai/internal/database"
	"nexusai/internal/llm/client"
	"nexusai/internal/llm/sqlgen"
	"nexusai/internal/models"
	"nexusai/internal/services"
	"nexusai/internal/server"
)

// App holds the wired backend and the resources to release on shutdown.
type App struct {
	cfg      config.Config
	svcs     *services.Services
	sessions *chat.Manager
	server   *server.Server
	dbClose  func() error
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup loads configuration and wires storage, key store, provider
// catalogue, adapters and the HTTP server.
func (a *App) startup(configPath, envPath string) error {
	config.LoadDotEnv(envPath)
	cfg, err := config.Load(config.ResolveConfigPath(configPath))
	if err != nil {
		return err
	}
	if err := config.ConfigureLogging(cfg.Log); err != nil {
		return err
	}
	a.cfg = cfg

	dbLevel := logger.Warn
	if log.IsLevelEnabled(log.DebugLevel) {
		dbLevel = logger.Info
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	db, err := database.Init(database.Config{Path: cfg.DBPath, LogLevel: dbLevel})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.dbClose = sqlDB.Close
	}

	envNames, err := services.ProviderKeyEnvNames(assets.ModelsData)
	if err != nil {
		return err
	}
	keys := services.NewKeyringService(a.openKeyring(), envNames)

	a.svcs = services.NewServices(db, keys)
	if err := a.svcs.Catalog.Startup(); err != nil {
		return fmt.Errorf("load provider catalogue: %w", err)
	}

	registry, err := client.NewRegistry(a.svcs.Catalog.List(), a.svcs.Catalog)
	if err != nil {
		return err
	}
	generator := sqlgen.NewGenerator(client.ChatModelFactory(a.svcs.Catalog.Get, a.svcs.Catalog, client.ModelOptions{}))

	provider, ok := models.ParseProvider(cfg.Chat.DefaultProvider)
	if !ok {
		return fmt.Errorf("unknown default provider %q", cfg.Chat.DefaultProvider)
	}

	var stores chat.StoreFactory
	if cfg.Chat.PersistSessions {
		stores = func(owner string) chat.SnapshotStore {
			return chat.NewDBStore(a.svcs.Snapshots, owner)
		}
	}
	a.sessions = chat.NewManager(registry, generator, stores, chat.Options{
		MaxHistory:   cfg.Chat.MaxHistory,
		Provider:     provider,
		SystemPrompt: cfg.Chat.SystemPrompt,
		SessionTTL:   cfg.JWT.Expiry,
	})
	a.server = server.New(cfg, a.svcs, a.sessions)

	log.WithFields(log.Fields{
		"providers":  len(a.svcs.Catalog.List()),
		"provider":   provider,
		"maxHistory": cfg.Chat.MaxHistory,
		"persist":    cfg.Chat.PersistSessions,
	}).Info("nexus.ai backend ready")
	return nil
}

// openKeyring returns the OS key store, or nil when disabled or unavailable
// so keys come from the environment only.
func (a *App) openKeyring() keyring.Keyring {
	if !a.cfg.Keyring {
		return nil
	}
	ring, err := services.OpenSystemKeyring()
	if err != nil {
		log.WithError(err).Warn("system keyring unavailable, falling back to environment API keys")
		return nil
	}
	return ring
}

// shutdown is called when the server stops. Clean up resources here.
func (a *App) shutdown() {
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			log.WithError(err).Error("failed to close database")
		} else {
			log.Info("database closed")
		}
		a.dbClose = nil
	}
}
