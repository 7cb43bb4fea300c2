// Package payment records the outcomes the external payment processor reports
// for download references. A paid or failed outcome is final.
package payment

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"

	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/httputil"
)

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePaid    Outcome = "paid"
	OutcomeFailed  Outcome = "failed"
)

// IsFinal reports whether o is a processor verdict.
func (o Outcome) IsFinal() bool {
	return o == OutcomePaid || o == OutcomeFailed
}

// ErrNotFinal is returned when recording anything but paid or failed.
var ErrNotFinal = errors.New("payment outcome must be paid or failed")

// Ledger stores processor outcomes by payment reference.
type Ledger interface {
	// Record stores outcome unless one is already stored, and returns the
	// outcome in effect afterwards.
	Record(ctx context.Context, reference string, outcome Outcome) (Outcome, error)
	// Outcome returns OutcomePending for references the processor has not reported.
	Outcome(ctx context.Context, reference string) (Outcome, error)
}

// MemoryLedger keeps outcomes in process memory.
type MemoryLedger struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{outcomes: make(map[string]Outcome)}
}

func (l *MemoryLedger) Record(_ context.Context, reference string, outcome Outcome) (Outcome, error) {
	if !outcome.IsFinal() {
		return "", ErrNotFinal
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.outcomes[reference]; ok {
		return existing, nil
	}
	l.outcomes[reference] = outcome
	return outcome, nil
}

func (l *MemoryLedger) Outcome(_ context.Context, reference string) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.outcomes[reference]; ok {
		return o, nil
	}
	return OutcomePending, nil
}

var _ Ledger = (*MemoryLedger)(nil)

// SecretHeader carries the shared secret on processor callbacks.
const SecretHeader = "X-Payment-Secret"

// RequireSecret rejects callback requests whose SecretHeader does not match
// secret. An empty secret refuses every callback.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(SecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid payment callback credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
