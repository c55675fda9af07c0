package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

type ChatSnapshotRepository interface {
	ListByOwner(ctx context.Context, ownerEmail string) ([]models.ChatSnapshot, error)
	GetByOwnerAndKey(ctx context.Context, ownerEmail, key string) (*models.ChatSnapshot, error)
	Create(ctx context.Context, snapshot *models.ChatSnapshot) error
	DeleteByOwnerAndKey(ctx context.Context, ownerEmail, key string) (bool, error)
}

type chatSnapshotRepository struct {
	db *gorm.DB
}

func NewChatSnapshotRepository(db *gorm.DB) ChatSnapshotRepository {
	return &chatSnapshotRepository{db: db}
}

func (r *chatSnapshotRepository) ListByOwner(ctx context.Context, ownerEmail string) ([]models.ChatSnapshot, error) {
	var snapshots []models.ChatSnapshot
	res := r.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		Order("created_at desc, key desc").
		Find(&snapshots)
	if res.Error != nil {
		return nil, apperr.Storage("list snapshots", res.Error)
	}
	return snapshots, nil
}

// GetByOwnerAndKey returns nil, nil when the snapshot does not exist.
func (r *chatSnapshotRepository) GetByOwnerAndKey(ctx context.Context, ownerEmail, key string) (*models.ChatSnapshot, error) {
	var snap models.ChatSnapshot
	res := r.db.WithContext(ctx).Where("owner_email = ? AND key = ?", ownerEmail, key).Take(&snap)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Storage("get snapshot", res.Error)
	}
	return &snap, nil
}

func (r *chatSnapshotRepository) Create(ctx context.Context, snapshot *models.ChatSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}
	if strings.TrimSpace(snapshot.OwnerEmail) == "" || strings.TrimSpace(snapshot.Key) == "" {
		return fmt.Errorf("owner and key are required")
	}
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.DuplicateKey(fmt.Sprintf("session %s already exists", snapshot.Key))
		}
		return apperr.Storage("insert snapshot", err)
	}
	return nil
}

// DeleteByOwnerAndKey reports whether a row was removed.
func (r *chatSnapshotRepository) DeleteByOwnerAndKey(ctx context.Context, ownerEmail, key string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("owner_email = ? AND key = ?", ownerEmail, key).
		Delete(&models.ChatSnapshot{})
	if res.Error != nil {
		return false, apperr.Storage("delete snapshot", res.Error)
	}
	return res.RowsAffected > 0, nil
}
