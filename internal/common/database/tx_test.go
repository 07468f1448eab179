package database

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxInfoFromContext_Empty(t *testing.T) {
	_, ok := TxInfoFromContext(context.Background())
	assert.False(t, ok)
}

func TestWithTx_RoundTrip(t *testing.T) {
	tx := &sqlx.Tx{}
	ctx := WithTx(context.Background(), tx, true)

	info, ok := TxInfoFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, tx, info.Tx)
	assert.True(t, info.Owned)
}

func TestWithTx_NilTxNotReturned(t *testing.T) {
	ctx := WithTx(context.Background(), nil, true)

	_, ok := TxInfoFromContext(ctx)
	assert.False(t, ok)
}

func TestExecutor_FallsBackToDB(t *testing.T) {
	db := &sqlx.DB{}
	ex := Executor(context.Background(), db)
	assert.Same(t, db, ex.(*sqlx.DB))
}

func TestExecutor_PrefersContextTx(t *testing.T) {
	db := &sqlx.DB{}
	tx := &sqlx.Tx{}
	ctx := WithTx(context.Background(), tx, false)

	ex := Executor(ctx, db)
	assert.Same(t, tx, ex.(*sqlx.Tx))
}
