package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

// CredentialRepository is append-only: accounts are created and read, never
// updated or deleted from the application.
type CredentialRepository interface {
	Create(ctx context.Context, c *models.Credential) error
	FindByEmail(ctx context.Context, email string) (*models.Credential, error)
	ListEmails(ctx context.Context) ([]string, error)
	ListUsernames(ctx context.Context) ([]string, error)
}

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

// Create inserts one row. A unique violation on email or username is reported
// as DuplicateKey even when the caller's pre-check passed.
func (r *credentialRepository) Create(ctx context.Context, c *models.Credential) error {
	err := r.db.WithContext(ctx).Create(c).Error
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return apperr.DuplicateKey("email or username already exists")
	}
	return apperr.Storage("insert user", err)
}

// FindByEmail returns nil, nil when no account uses email.
func (r *credentialRepository) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Storage("find user", err)
	}
	return &c, nil
}

func (r *credentialRepository) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := r.db.WithContext(ctx).Model(&models.Credential{}).Pluck("email", &emails).Error; err != nil {
		return nil, apperr.Storage("list emails", err)
	}
	return emails, nil
}

func (r *credentialRepository) ListUsernames(ctx context.Context) ([]string, error) {
	var usernames []string
	if err := r.db.WithContext(ctx).Model(&models.Credential{}).Pluck("username", &usernames).Error; err != nil {
		return nil, apperr.Storage("list usernames", err)
	}
	return usernames, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
