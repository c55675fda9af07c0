package mocks

import (
	"context"

	"nexusai/internal/models"
)

type ChatSnapshotRepositoryMock struct {
	ListByOwnerFunc         func(ctx context.Context, ownerEmail string) ([]models.ChatSnapshot, error)
	GetByOwnerAndKeyFunc    func(ctx context.Context, ownerEmail, key string) (*models.ChatSnapshot, error)
	CreateFunc              func(ctx context.Context, snapshot *models.ChatSnapshot) error
	DeleteByOwnerAndKeyFunc func(ctx context.Context, ownerEmail, key string) (bool, error)
}

func (m *ChatSnapshotRepositoryMock) ListByOwner(ctx context.Context, ownerEmail string) ([]models.ChatSnapshot, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerEmail)
	}
	return []models.ChatSnapshot{}, nil
}

func (m *ChatSnapshotRepositoryMock) GetByOwnerAndKey(ctx context.Context, ownerEmail, key string) (*models.ChatSnapshot, error) {
	if m.GetByOwnerAndKeyFunc != nil {
		return m.GetByOwnerAndKeyFunc(ctx, ownerEmail, key)
	}
	return nil, nil
}

func (m *ChatSnapshotRepositoryMock) Create(ctx context.Context, snapshot *models.ChatSnapshot) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, snapshot)
	}
	return nil
}

func (m *ChatSnapshotRepositoryMock) DeleteByOwnerAndKey(ctx context.Context, ownerEmail, key string) (bool, error) {
	if m.DeleteByOwnerAndKeyFunc != nil {
		return m.DeleteByOwnerAndKeyFunc(ctx, ownerEmail, key)
	}
	return false, nil
}
