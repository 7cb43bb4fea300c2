package main

import (
	"context"
	"database/sql"
	"time"

	declarationservice "etatcivil/internal/declaration/service"
	declarationstore "etatcivil/internal/declaration/store"
	dErrors "etatcivil/pkg/domain-errors"
	outboxpostgres "etatcivil/pkg/platform/outbox/store/postgres"
)

// declarationPostgresTx runs one workflow transition in a database
// transaction. Row locks come from FindForUpdate, so the key is unused.
type declarationPostgresTx struct {
	db      *sql.DB
	outbox  *outboxpostgres.Store
	timeout time.Duration
}

func newDeclarationPostgresTx(db *sql.DB, outbox *outboxpostgres.Store) *declarationPostgresTx {
	return &declarationPostgresTx{db: db, outbox: outbox, timeout: declarationservice.DefaultTxTimeout}
}

func (t *declarationPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, stores declarationservice.Stores) error) error {
	return runInTx(ctx, t.db, t.timeout, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, declarationservice.Stores{
			Declarations: declarationstore.NewPostgresTx(tx),
			Outbox:       t.outbox.WithTx(tx),
		})
	})
}

// runInTx begins a transaction bounded by timeout when ctx has no deadline,
// commits when fn succeeds and rolls back otherwise.
func runInTx(ctx context.Context, db *sql.DB, timeout time.Duration, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}
