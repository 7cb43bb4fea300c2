// Package sequence allocates strictly increasing numbers per scope key.
//
// Every implementation is an atomic increment-and-get: the first call for an
// unseen scope returns 1 and no two callers ever observe the same value.
package sequence

import (
	"context"
	"fmt"
	"sync"

	id "etatcivil/pkg/domain"
)

// Allocator hands out the next value for a scope.
type Allocator interface {
	Next(ctx context.Context, scope string) (int64, error)
}

// ScopeKey builds the per-office, per-year scope used for certificate numbering.
func ScopeKey(officeID id.OfficeID, year int) string {
	return fmt.Sprintf("%s:%d", officeID, year)
}

// MemoryAllocator keeps counters in process memory.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counters: make(map[string]int64)}
}

func (a *MemoryAllocator) Next(ctx context.Context, scope string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[scope]++
	return a.counters[scope], nil
}

var _ Allocator = (*MemoryAllocator)(nil)
