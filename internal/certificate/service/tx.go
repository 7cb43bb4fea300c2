package service

import (
	"context"
	"time"

	"etatcivil/internal/sequence"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/outbox"
	platformsync "etatcivil/pkg/platform/sync"
)

// Stores are the writers available inside one issuance transaction.
type Stores struct {
	Certificates Store
	Declarations DeclarationWriter
	Sequence     sequence.Allocator
	Outbox       outbox.Appender
}

// StoreTx provides the transactional boundary for issuance. key is the
// declaration ID, so issuance serializes with workflow transitions on the same
// declaration.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context, stores Stores) error) error
}

// DefaultTxTimeout bounds an issuance transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// ShardedTx serializes in-memory issuance per declaration. It must share its
// mutex with the declaration workflow's ShardedTx. Writes are not rolled back
// when fn fails; a consumed sequence value is a gap, never a duplicate.
type ShardedTx struct {
	mu      *platformsync.ShardedMutex
	stores  Stores
	timeout time.Duration
}

func NewShardedTx(mu *platformsync.ShardedMutex, stores Stores) *ShardedTx {
	return &ShardedTx{mu: mu, stores: stores, timeout: DefaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	if err := t.mu.LockContext(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: lock wait exceeded deadline")
	}
	defer t.mu.Unlock(key)
	return fn(ctx, t.stores)
}
