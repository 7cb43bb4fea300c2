package main

import (
	"context"
	"database/sql"
	"time"

	certificateservice "etatcivil/internal/certificate/service"
	certificatestore "etatcivil/internal/certificate/store"
	declarationstore "etatcivil/internal/declaration/store"
	"etatcivil/internal/sequence"
	outboxpostgres "etatcivil/pkg/platform/outbox/store/postgres"
)

// certificatePostgresTx runs issuance in one database transaction. The
// declaration row lock taken by FindForUpdate serializes issuance with
// workflow transitions. A nil counter allocates sequence values inside the
// same transaction.
type certificatePostgresTx struct {
	db      *sql.DB
	outbox  *outboxpostgres.Store
	counter sequence.Allocator
	timeout time.Duration
}

func newCertificatePostgresTx(db *sql.DB, outbox *outboxpostgres.Store, counter sequence.Allocator) *certificatePostgresTx {
	return &certificatePostgresTx{db: db, outbox: outbox, counter: counter, timeout: certificateservice.DefaultTxTimeout}
}

func (t *certificatePostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, stores certificateservice.Stores) error) error {
	return runInTx(ctx, t.db, t.timeout, func(ctx context.Context, tx *sql.Tx) error {
		var counter sequence.Allocator = sequence.NewPostgresAllocator(t.db).WithTx(tx)
		if t.counter != nil {
			counter = t.counter
		}
		return fn(ctx, certificateservice.Stores{
			Certificates: certificatestore.NewPostgresTx(tx),
			Declarations: declarationstore.NewPostgresTx(tx),
			Sequence:     counter,
			Outbox:       t.outbox.WithTx(tx),
		})
	})
}
