package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/PeterUlb/layeringtst/internal/db"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, *db.Conn, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	conn, err := db.NewPool(sqlDB).Acquire(context.Background())
	if err != nil {
		t.Fatalf("failed to acquire connection: %v", err)
	}
	repo := NewPostgresUserRepository(nil)
	cleanup := func() {
		conn.Close()
		sqlDB.Close()
	}
	return repo, conn, mock, cleanup
}

func TestGetByUsername_Found(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()

	username := "alice"
	mock.ExpectPrepare(regexp.QuoteMeta(`SELECT id, username FROM app_user WHERE username = $1`)).
		ExpectQuery().
		WithArgs(username).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(int64(1), username))

	user, err := repo.GetByUsername(context.Background(), conn, username)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID != 1 || user.Username != username {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectPrepare(regexp.QuoteMeta(`SELECT id, username FROM app_user WHERE username = $1`)).
		ExpectQuery().
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	user, err := repo.GetByUsername(context.Background(), conn, "ghost")
	if err != nil {
		t.Fatalf("absence must not be an error, got: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetByUsername_CaseSensitive(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectPrepare(regexp.QuoteMeta(`SELECT id, username FROM app_user WHERE username = $1`)).
		ExpectQuery().
		WithArgs("Alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	user, err := repo.GetByUsername(context.Background(), conn, "Alice")
	if err != nil || user != nil {
		t.Fatalf("GetByUsername(Alice) = %+v, %v; want nil, nil", user, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetByUsername_Error(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectPrepare(regexp.QuoteMeta(`SELECT id, username FROM app_user WHERE username = $1`)).
		ExpectQuery().
		WithArgs("bob").
		WillReturnError(errors.New("query failed"))

	_, err := repo.GetByUsername(context.Background(), conn, "bob")
	var storeErr *db.StoreError
	if !errors.As(err, &storeErr) {
		t.Errorf("expected *db.StoreError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetByUsername_PrepareError(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectPrepare(regexp.QuoteMeta(`SELECT id, username FROM app_user`)).
		WillReturnError(errors.New("relation \"app_user\" does not exist"))

	if _, err := repo.GetByUsername(context.Background(), conn, "bob"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestCreateUser_Success(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()

	username := "newuser"
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO app_user (username) VALUES ($1)`)).
		ExpectExec().
		WithArgs(username).
		WillReturnResult(sqlmock.NewResult(1, 1))

	n, err := repo.CreateUser(context.Background(), conn, username)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("rows affected = %d; want 1", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_Conflict(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()

	username := "dupuser"
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO app_user (username) VALUES ($1)`)).
		ExpectExec().
		WithArgs(username).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.CreateUser(context.Background(), conn, username)
	var storeErr *db.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *db.StoreError, got %v", err)
	}
	if !db.IsUniqueViolation(err) {
		t.Errorf("expected unique violation in chain, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_InsideTransaction(t *testing.T) {
	repo, conn, mock, cleanup := setupUserMock(t)
	defer cleanup()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO app_user (username) VALUES ($1)`)).
		ExpectExec().
		WithArgs("txuser").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := repo.CreateUser(ctx, tx, "txuser"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
