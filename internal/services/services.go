package services

import (
	"gorm.io/gorm"

	"nexusai/internal/repositories"
)

// Services aggregates the account and catalogue services backed by the
// database and the key store.
type Services struct {
	Accounts  AccountService
	Snapshots repositories.ChatSnapshotRepository
	Keys      *KeyringService
	Catalog   ProviderCatalogService
}

// NewServices constructs the service container using repositories backed by db.
func NewServices(db *gorm.DB, keys *KeyringService, opts ...AccountOption) *Services {
	userRepo := repositories.NewCredentialRepository(db)
	snapshotRepo := repositories.NewChatSnapshotRepository(db)

	return &Services{
		Accounts:  NewAccountService(userRepo, opts...),
		Snapshots: snapshotRepo,
		Keys:      keys,
		Catalog:   NewProviderCatalogService(keys),
	}
}
