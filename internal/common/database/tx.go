// internal/common/database/tx.go
// Unit-of-work support: a transaction travels in the context so repository
// calls compose into one atomic operation owned by the outermost caller.

package database

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// TxInfo holds the transaction in context and whether it is owned by the caller.
type TxInfo struct {
	Tx    *sqlx.Tx
	Owned bool
}

// WithTx stores transaction info in the context.
func WithTx(ctx context.Context, tx *sqlx.Tx, owned bool) context.Context {
	return context.WithValue(ctx, txKey{}, TxInfo{Tx: tx, Owned: owned})
}

// TxInfoFromContext extracts transaction info from the context.
func TxInfoFromContext(ctx context.Context) (TxInfo, bool) {
	info, ok := ctx.Value(txKey{}).(TxInfo)
	if !ok || info.Tx == nil {
		return TxInfo{}, false
	}
	return info, true
}

// Executor returns the context transaction when present, otherwise the db.
// Repositories run every statement through this so they participate in a
// caller-supplied transaction without knowing about it.
func Executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if info, ok := TxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return db
}

// TxManager runs a function inside a database transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLTxManager is the sqlx-backed TxManager.
type SQLTxManager struct {
	db *sqlx.DB
}

// NewTxManager creates a TxManager over the given connection pool.
func NewTxManager(db *sqlx.DB) *SQLTxManager {
	return &SQLTxManager{db: db}
}

// RunInTx executes fn inside a transaction. If the context already carries a
// transaction, fn joins it and commit/rollback stays with the outermost
// caller; otherwise a new transaction is opened and committed on success or
// rolled back on error.
func (m *SQLTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxInfoFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(WithTx(ctx, tx, true)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("[database] rollback failed: %v (original error: %v)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}
