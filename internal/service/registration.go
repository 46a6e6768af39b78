// Package service provides the registration business logic, delegating
// persistence to a UserRepository.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PeterUlb/layeringtst/internal/db"
	"github.com/PeterUlb/layeringtst/internal/models"
)

var (
	// ErrUsernameAlreadyExists is returned when the requested username is taken.
	ErrUsernameAlreadyExists = errors.New("username already exists")
	// ErrStoreFailure wraps any failure reported by the store.
	ErrStoreFailure = errors.New("store failure")
)

// UserRepository defines the persistence operations required by the
// registration service. Every operation runs on the client it is given.
type UserRepository interface {
	// CreateUser inserts a user and returns the number of rows inserted.
	CreateUser(ctx context.Context, client db.Client, username string) (uint64, error)
	// GetByUsername returns the matching user, or nil if there is none.
	GetByUsername(ctx context.Context, client db.Client, username string) (*models.User, error)
}

// RegistrationService enforces username uniqueness and performs bulk
// registration atomically.
type RegistrationService struct {
	repo        UserRepository
	log         *zap.Logger
	newUsername func() string
}

// Option configures a RegistrationService.
type Option func(*RegistrationService)

// WithUsernameGenerator replaces the generator used by RegisterUsers.
// Generated names must be globally unique.
func WithUsernameGenerator(gen func() string) Option {
	return func(s *RegistrationService) {
		s.newUsername = gen
	}
}

// NewRegistrationService constructs a RegistrationService using the provided repository.
func NewRegistrationService(repo UserRepository, log *zap.Logger, opts ...Option) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &RegistrationService{
		repo:        repo,
		log:         log.Named("service.registration"),
		newUsername: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func storeFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}

// GetUser returns the user registered under username, or nil if there is none.
func (s *RegistrationService) GetUser(ctx context.Context, client db.Client, username string) (*models.User, error) {
	user, err := s.repo.GetByUsername(ctx, client, username)
	if err != nil {
		return nil, storeFailure(err)
	}
	return user, nil
}

// RegisterUser creates a user unless the username is already taken.
//
// The lookup and the insert are separate statements, so two concurrent calls
// may both pass the lookup. The unique constraint on app_user.username makes
// the slower insert fail; that conflict is reported as ErrUsernameAlreadyExists
// as well.
func (s *RegistrationService) RegisterUser(ctx context.Context, client db.Client, username string) (uint64, error) {
	existing, err := s.repo.GetByUsername(ctx, client, username)
	if err != nil {
		return 0, storeFailure(err)
	}
	if existing != nil {
		s.log.Debug("username taken", zap.String("username", username), zap.Int64("id", existing.ID))
		return 0, ErrUsernameAlreadyExists
	}

	n, err := s.repo.CreateUser(ctx, client, username)
	if err != nil {
		if db.IsUniqueViolation(err) {
			s.log.Info("username registered concurrently", zap.String("username", username))
			return 0, fmt.Errorf("%w: %w", ErrUsernameAlreadyExists, err)
		}
		s.log.Error("register user failed", zap.String("username", username), zap.Error(err))
		return 0, storeFailure(err)
	}

	s.log.Info("user registered", zap.String("username", username))
	return n, nil
}

// RegisterUsers creates amount users with generated usernames in a single
// transaction. Either all of them are committed or none is.
func (s *RegistrationService) RegisterUsers(ctx context.Context, client db.Client, amount uint64) (uint64, error) {
	tx, err := client.Begin(ctx)
	if err != nil {
		return 0, storeFailure(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := uint64(0); i < amount; i++ {
		if _, err := s.repo.CreateUser(ctx, tx, s.newUsername()); err != nil {
			s.log.Error("bulk registration aborted",
				zap.Uint64("inserted", i),
				zap.Uint64("amount", amount),
				zap.Error(err),
			)
			return 0, storeFailure(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storeFailure(fmt.Errorf("commit: %w", err))
	}

	s.log.Info("users registered", zap.Uint64("amount", amount))
	return amount, nil
}
