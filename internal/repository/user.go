// Package repository maps user operations onto parameterized statements
// executed through a db.Client.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PeterUlb/layeringtst/internal/db"
	"github.com/PeterUlb/layeringtst/internal/models"
)

const (
	insertUserQuery           = `INSERT INTO app_user (username) VALUES ($1)`
	selectUserByUsernameQuery = `SELECT id, username FROM app_user WHERE username = $1`
)

// PostgresUserRepository implements user persistence against the app_user
// table. It holds no connection: every call runs on the client it is given,
// so the same repository works on a borrowed connection or inside a
// transaction.
type PostgresUserRepository struct {
	log *zap.Logger
}

// NewPostgresUserRepository creates a PostgresUserRepository.
func NewPostgresUserRepository(log *zap.Logger) *PostgresUserRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresUserRepository{log: log.Named("repository.user")}
}

// CreateUser inserts a user with the given username and a store-assigned id.
// It returns the number of rows inserted. A username conflict surfaces as a
// *db.StoreError; enforcing uniqueness is up to the caller.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, client db.Client, username string) (uint64, error) {
	stmt, err := client.Prepare(ctx, insertUserQuery)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	defer stmt.Close()

	n, err := client.Execute(ctx, stmt, username)
	if err != nil {
		r.log.Debug("insert user failed", zap.String("username", username), zap.Error(err))
		return 0, fmt.Errorf("create user: %w", err)
	}
	return n, nil
}

// GetByUsername returns the user with the given username, or nil if there
// is none. Only store failures are reported as errors.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, client db.Client, username string) (*models.User, error) {
	stmt, err := client.Prepare(ctx, selectUserByUsernameQuery)
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	defer stmt.Close()

	row, err := client.QueryOptional(ctx, stmt, username)
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	if row == nil {
		return nil, nil
	}

	var user models.User
	if err := row.Scan(&user.ID, &user.Username); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
