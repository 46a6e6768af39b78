package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Conn is a connection borrowed from a Pool. Close returns it.
type Conn struct {
	session
	conn   *sql.Conn
	active *Tx
}

var _ Client = (*Conn)(nil)

// Begin starts a transaction on the connection.
func (c *Conn) Begin(ctx context.Context) (Transaction, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin", err)
	}
	t := &Tx{session: session{ex: tx}, tx: tx}
	c.active = t
	return t, nil
}

// Close rolls back a transaction left open on the connection and returns
// the connection to the pool.
func (c *Conn) Close() error {
	if c.active != nil && !c.active.done {
		_ = c.active.Rollback(context.Background())
	}
	c.active = nil
	return c.conn.Close()
}

// Tx is an open transaction. Begin on a Tx opens a nested transaction backed
// by a savepoint; committing it releases the savepoint and rolling it back
// undoes only the work issued through it.
type Tx struct {
	session
	tx        *sql.Tx
	savepoint string
	depth     int
	done      bool
}

var _ Transaction = (*Tx)(nil)

// Begin opens a nested transaction.
func (t *Tx) Begin(ctx context.Context) (Transaction, error) {
	if t.done {
		return nil, storeErr("savepoint", sql.ErrTxDone)
	}
	name := fmt.Sprintf("sp_%d", t.depth+1)
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, storeErr("savepoint", err)
	}
	return &Tx{session: t.session, tx: t.tx, savepoint: name, depth: t.depth + 1}, nil
}

// Commit makes the transaction's work permanent. Calling it on a finished
// transaction returns sql.ErrTxDone.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if t.savepoint != "" {
		_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+t.savepoint)
		return storeErr("release savepoint", err)
	}
	return storeErr("commit", t.tx.Commit())
}

// Rollback discards the transaction's work. Calling it on a finished
// transaction returns sql.ErrTxDone and does not reach the store.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if t.savepoint != "" {
		_, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+t.savepoint)
		return storeErr("rollback to savepoint", err)
	}
	return storeErr("rollback", t.tx.Rollback())
}
