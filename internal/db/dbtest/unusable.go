// Package dbtest provides client doubles for tests of code built on db.Client.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/PeterUlb/layeringtst/internal/db"
)

// ErrUnusable is the panic value raised by an Unusable client without a TB.
var ErrUnusable = errors.New("dbtest: operation on unusable client")

// Unusable is a db.Transaction that must never be reached. Every method
// fails the test through TB, or panics with ErrUnusable when TB is nil.
// Use it to assert that a code path never touches the store.
type Unusable struct {
	TB testing.TB
}

var _ db.Transaction = Unusable{}

func (u Unusable) fail(op string) {
	if u.TB != nil {
		u.TB.Helper()
		u.TB.Fatalf("dbtest: unexpected %s on unusable client", op)
		return
	}
	panic(fmt.Errorf("%w: %s", ErrUnusable, op))
}

func (u Unusable) Prepare(context.Context, string) (*db.Statement, error) {
	u.fail("Prepare")
	return nil, ErrUnusable
}

func (u Unusable) Execute(context.Context, *db.Statement, ...any) (uint64, error) {
	u.fail("Execute")
	return 0, ErrUnusable
}

func (u Unusable) Query(context.Context, *db.Statement, ...any) ([]db.Row, error) {
	u.fail("Query")
	return nil, ErrUnusable
}

func (u Unusable) QueryOne(context.Context, *db.Statement, ...any) (db.Row, error) {
	u.fail("QueryOne")
	return db.Row{}, ErrUnusable
}

func (u Unusable) QueryOptional(context.Context, *db.Statement, ...any) (*db.Row, error) {
	u.fail("QueryOptional")
	return nil, ErrUnusable
}

func (u Unusable) Begin(context.Context) (db.Transaction, error) {
	u.fail("Begin")
	return nil, ErrUnusable
}

func (u Unusable) Commit(context.Context) error {
	u.fail("Commit")
	return ErrUnusable
}

func (u Unusable) Rollback(context.Context) error {
	u.fail("Rollback")
	return ErrUnusable
}
