package sync

import (
	"context"
)

const shardCount = 32

// ShardedMutex provides per-key exclusion spread over a fixed set of shards.
// Each shard is a one-slot semaphore so acquisition can honour a context
// deadline, which sync.Mutex cannot.
type ShardedMutex struct {
	shards [shardCount]chan struct{}
}

// NewShardedMutex creates a new ShardedMutex with 32 shards.
func NewShardedMutex() *ShardedMutex {
	m := &ShardedMutex{}
	for i := range m.shards {
		m.shards[i] = make(chan struct{}, 1)
	}
	return m
}

// Lock acquires the shard for key, blocking until it is free.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)] <- struct{}{}
}

// LockContext acquires the shard for key or returns ctx.Err() once the
// context is done.
func (m *ShardedMutex) LockContext(ctx context.Context, key string) error {
	select {
	case m.shards[m.shardFor(key)] <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the shard for key.
func (m *ShardedMutex) Unlock(key string) {
	<-m.shards[m.shardFor(key)]
}

// WithLock runs fn while holding the shard for key.
func (m *ShardedMutex) WithLock(ctx context.Context, key string, fn func() error) error {
	if err := m.LockContext(ctx, key); err != nil {
		return err
	}
	defer m.Unlock(key)
	return fn()
}

// shardFor returns the shard index for the given key. Empty keys map to shard 0.
func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % shardCount)
}

// hashString is a djb2-style hash for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
