//go:build !prod

package database

// GetDefaultDBPath returns the database path for development mode.
// In dev mode, the database sits next to the binary as users.db.
func GetDefaultDBPath() string {
	return "users.db"
}

func IsDevelopment() bool {
	return true
}
