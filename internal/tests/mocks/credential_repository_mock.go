package mocks

import (
	"context"

	"nexusai/internal/models"
)

type CredentialRepositoryMock struct {
	CreateFunc        func(ctx context.Context, c *models.Credential) error
	FindByEmailFunc   func(ctx context.Context, email string) (*models.Credential, error)
	ListEmailsFunc    func(ctx context.Context) ([]string, error)
	ListUsernamesFunc func(ctx context.Context) ([]string, error)
}

func (m *CredentialRepositoryMock) Create(ctx context.Context, c *models.Credential) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return nil
}

func (m *CredentialRepositoryMock) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *CredentialRepositoryMock) ListEmails(ctx context.Context) ([]string, error) {
	if m.ListEmailsFunc != nil {
		return m.ListEmailsFunc(ctx)
	}
	return []string{}, nil
}

func (m *CredentialRepositoryMock) ListUsernames(ctx context.Context) ([]string, error) {
	if m.ListUsernamesFunc != nil {
		return m.ListUsernamesFunc(ctx)
	}
	return []string{}, nil
}
