// Package db provides the PostgreSQL connection pool and a Client interface
// implemented alike by a borrowed connection and by a transaction, so the
// same repository code can run against either.
package db

import (
	"context"
	"database/sql"
	"errors"
)

// Client is the set of store operations repositories depend on.
// *Conn and *Tx implement it. A Client is owned by a single request and must
// not be used from concurrent goroutines.
type Client interface {
	// Prepare creates a prepared statement for later execution.
	Prepare(ctx context.Context, query string) (*Statement, error)
	// Execute runs stmt and returns the number of rows affected.
	Execute(ctx context.Context, stmt *Statement, args ...any) (uint64, error)
	// Query runs stmt and returns every resulting row.
	Query(ctx context.Context, stmt *Statement, args ...any) ([]Row, error)
	// QueryOne runs stmt and returns its only row. A result with zero or
	// several rows yields a *CardinalityError.
	QueryOne(ctx context.Context, stmt *Statement, args ...any) (Row, error)
	// QueryOptional runs stmt and returns its row, or nil when the result is
	// empty. Several rows yield a *CardinalityError.
	QueryOptional(ctx context.Context, stmt *Statement, args ...any) (*Row, error)
	// Begin starts a transaction scoped to this client.
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction is a Client whose statements take effect only on Commit.
type Transaction interface {
	Client
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

var errNilStatement = errors.New("db: nil statement")

// Statement is a prepared statement bound to the client that prepared it.
type Statement struct {
	query string
	stmt  *sql.Stmt
	owner executor
}

// SQL returns the statement text.
func (s *Statement) SQL() string {
	return s.query
}

// Close releases the prepared statement.
func (s *Statement) Close() error {
	if s == nil || s.stmt == nil {
		return nil
	}
	return s.stmt.Close()
}

// executor is satisfied by both *sql.Conn and *sql.Tx.
type executor interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// session implements the statement half of Client on top of an executor.
type session struct {
	ex executor
}

func (s session) Prepare(ctx context.Context, query string) (*Statement, error) {
	stmt, err := s.ex.PrepareContext(ctx, query)
	if err != nil {
		return nil, storeErr("prepare", err)
	}
	return &Statement{query: query, stmt: stmt, owner: s.ex}, nil
}

// bind returns a *sql.Stmt usable on this session. A statement prepared on a
// different executor is prepared again here and released by the returned func.
func (s session) bind(ctx context.Context, stmt *Statement) (*sql.Stmt, func(), error) {
	if stmt == nil {
		return nil, nil, errNilStatement
	}
	if stmt.owner == s.ex && stmt.stmt != nil {
		return stmt.stmt, func() {}, nil
	}
	prepared, err := s.ex.PrepareContext(ctx, stmt.query)
	if err != nil {
		return nil, nil, storeErr("prepare", err)
	}
	return prepared, func() { _ = prepared.Close() }, nil
}

func (s session) Execute(ctx context.Context, stmt *Statement, args ...any) (uint64, error) {
	st, release, err := s.bind(ctx, stmt)
	if err != nil {
		return 0, err
	}
	defer release()

	res, err := st.ExecContext(ctx, args...)
	if err != nil {
		return 0, storeErr("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("rows affected", err)
	}
	return uint64(n), nil
}

func (s session) query(ctx context.Context, stmt *Statement, limit int, args []any) ([]Row, error) {
	st, release, err := s.bind(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := st.QueryContext(ctx, args...)
	if err != nil {
		return nil, storeErr("query", err)
	}
	defer rows.Close()

	out, err := readRows(rows, limit)
	if err != nil {
		return nil, storeErr("read rows", err)
	}
	return out, nil
}

func (s session) Query(ctx context.Context, stmt *Statement, args ...any) ([]Row, error) {
	return s.query(ctx, stmt, 0, args)
}

func (s session) QueryOne(ctx context.Context, stmt *Statement, args ...any) (Row, error) {
	rows, err := s.query(ctx, stmt, 2, args)
	if err != nil {
		return Row{}, err
	}
	if len(rows) != 1 {
		return Row{}, &CardinalityError{Rows: len(rows)}
	}
	return rows[0], nil
}

func (s session) QueryOptional(ctx context.Context, stmt *Statement, args ...any) (*Row, error) {
	rows, err := s.query(ctx, stmt, 2, args)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, &CardinalityError{Rows: len(rows)}
	}
}
