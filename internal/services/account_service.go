package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
	"nexusai/internal/repositories"
	"nexusai/internal/validation"
)

type SignUpInput struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type AccountService interface {
	SignUp(ctx context.Context, in SignUpInput) (*models.Credential, error)
	Login(ctx context.Context, email, password string) (*models.Credential, error)
}

type accountService struct {
	users repositories.CredentialRepository
	cost  int
	now   func() time.Time
}

// AccountOption customises an AccountService.
type AccountOption func(*accountService)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) AccountOption {
	return func(s *accountService) { s.cost = cost }
}

// WithClock overrides the clock used for date_joined.
func WithClock(now func() time.Time) AccountOption {
	return func(s *accountService) { s.now = now }
}

func NewAccountService(users repositories.CredentialRepository, opts ...AccountOption) AccountService {
	s := &accountService{
		users: users,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp stops at the first failing check: email syntax, email taken,
// username syntax, username taken, password length, password confirmation.
func (s *accountService) SignUp(ctx context.Context, in SignUpInput) (*models.Credential, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)

	if ok, reason := validation.ValidateEmail(email); !ok {
		return nil, apperr.Validationf("Email Error: %s", reason)
	}
	emails, err := s.users.ListEmails(ctx)
	if err != nil {
		return nil, err
	}
	if contains(emails, email) {
		return nil, apperr.DuplicateKey("Email already exists!")
	}

	if ok, reason := validation.ValidateUsername(username); !ok {
		return nil, apperr.Validationf("Username Error: %s", reason)
	}
	usernames, err := s.users.ListUsernames(ctx)
	if err != nil {
		return nil, err
	}
	if contains(usernames, username) {
		return nil, apperr.DuplicateKey("Username already exists!")
	}

	if utf8.RuneCountInString(in.Password) < validation.MinPasswordLength {
		return nil, apperr.Validation("Password must be at least 6 characters")
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperr.Validation("Passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperr.Validationf("could not hash password: %v", err)
	}

	cred := &models.Credential{
		Email:      email,
		Username:   username,
		Password:   string(hash),
		DateJoined: s.now().Format(models.DateJoinedLayout),
	}
	if err := s.users.Create(ctx, cred); err != nil {
		if apperr.KindOf(err) == apperr.KindStorage {
			log.WithError(err).WithField("email", email).Error("sign-up insert failed")
		}
		return nil, err
	}
	log.WithField("username", username).Info("account created")
	return cred, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*models.Credential, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Validation("Email cannot be empty")
	}
	cred, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, apperr.NotFound("Email not registered! Please SignUp")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, apperr.Unauthorized("Incorrect password")
		}
		return nil, apperr.Unauthorized("stored password hash is unreadable")
	}
	return cred, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
