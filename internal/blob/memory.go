package blob

import (
	"context"
	"sync"

	"etatcivil/pkg/platform/sentinel"
)

const memoryScheme = "mem://"

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return memoryScheme + key, nil
}

func (s *MemoryStore) Get(ctx context.Context, ref string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ref) <= len(memoryScheme) || ref[:len(memoryScheme)] != memoryScheme {
		return nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[ref[len(memoryScheme):]]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &Object{Data: append([]byte(nil), obj.Data...), ContentType: obj.ContentType}, nil
}

var _ Store = (*MemoryStore)(nil)
