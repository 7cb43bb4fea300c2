package sequence

import (
	"context"
	"database/sql"
	"fmt"
)

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresAllocator upserts into sequence_counters. Inside a transaction the
// counter row stays locked until commit, so allocations for one scope are
// serialized in commit order and a rolled-back issuance gives its value back.
type PostgresAllocator struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgresAllocator(db *sql.DB) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

// WithTx returns an allocator that increments within tx.
func (a *PostgresAllocator) WithTx(tx *sql.Tx) *PostgresAllocator {
	return &PostgresAllocator{db: a.db, tx: tx}
}

func (a *PostgresAllocator) execer() queryRower {
	if a.tx != nil {
		return a.tx
	}
	return a.db
}

func (a *PostgresAllocator) Next(ctx context.Context, scope string) (int64, error) {
	var v int64
	err := a.execer().QueryRowContext(ctx, `
		INSERT INTO sequence_counters (scope, value) VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value
	`, scope).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", scope, err)
	}
	return v, nil
}

var _ Allocator = (*PostgresAllocator)(nil)
