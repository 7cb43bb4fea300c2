package blob

import (
	"context"
	"errors"
	"fmt"

	"etatcivil/pkg/platform/circuit"
	"etatcivil/pkg/platform/sentinel"
)

// GuardedStore runs every call through a circuit breaker. Unknown references
// are not failures; an open circuit and backend errors surface as
// sentinel.ErrUnavailable.
type GuardedStore struct {
	inner   Store
	breaker *circuit.Breaker
}

func NewGuardedStore(inner Store, breaker *circuit.Breaker) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: breaker}
}

func (g *GuardedStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var ref string
	err := g.breaker.Do(func() error {
		var err error
		ref, err = g.inner.Put(ctx, key, data, contentType)
		return err
	})
	if err != nil {
		return "", unavailable(err)
	}
	return ref, nil
}

func (g *GuardedStore) Get(ctx context.Context, ref string) (*Object, error) {
	var (
		obj      *Object
		notFound bool
	)
	err := g.breaker.Do(func() error {
		var err error
		obj, err = g.inner.Get(ctx, ref)
		if errors.Is(err, sentinel.ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if notFound {
		return nil, sentinel.ErrNotFound
	}
	return obj, nil
}

func unavailable(err error) error {
	if errors.Is(err, circuit.ErrOpen) {
		return fmt.Errorf("blob store circuit open: %w", sentinel.ErrUnavailable)
	}
	return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
}

var _ Store = (*GuardedStore)(nil)
