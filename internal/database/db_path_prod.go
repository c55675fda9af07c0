//go:build prod

package database

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// GetDefaultDBPath returns the database path for production mode.
// In production, the database is stored in the user's config directory.
func GetDefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		log.WithError(err).Warn("failed to get user config dir, using fallback")
		return "users.db"
	}

	appDir := filepath.Join(configDir, "nexusai")

	if err := os.MkdirAll(appDir, 0755); err != nil {
		log.WithError(err).Warn("failed to create app config dir, using fallback")
		return "users.db"
	}

	return filepath.Join(appDir, "users.db")
}

func IsDevelopment() bool {
	return false
}
