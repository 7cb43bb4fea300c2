package service

import (
	"context"
	"time"

	"etatcivil/internal/declaration/metrics"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/outbox"
	platformsync "etatcivil/pkg/platform/sync"
)

// Stores are the writers available inside one transaction.
type Stores struct {
	Declarations Store
	Outbox       outbox.Appender
}

// StoreTx provides a transactional boundary for workflow mutations.
// key names the aggregate being changed; implementations may use it to pick a lock.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context, stores Stores) error) error
}

// DefaultTxTimeout bounds a workflow transaction when the caller set no deadline.
const DefaultTxTimeout = 5 * time.Second

// ShardedTx serializes in-memory transactions per key with a sharded mutex.
// Share one mutex with every component that mutates declarations.
// There is no rollback: writes made before fn fails stay applied, so fn must
// perform its fallible steps before the state write.
type ShardedTx struct {
	mu      *platformsync.ShardedMutex
	stores  Stores
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewShardedTx(mu *platformsync.ShardedMutex, stores Stores, m *metrics.Metrics) *ShardedTx {
	return &ShardedTx{mu: mu, stores: stores, timeout: DefaultTxTimeout, metrics: m}
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

	lockStart := time.Now()
	if err := t.mu.LockContext(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: lock wait exceeded deadline")
	}
	defer t.mu.Unlock(key)
	if t.metrics != nil {
		t.metrics.ObserveLockWait(time.Since(lockStart).Seconds())
	}

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx, t.stores)
}
