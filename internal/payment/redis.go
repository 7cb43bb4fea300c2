package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "payment:"

// RedisLedger stores outcomes with SETNX so concurrent callbacks settle on the first verdict.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Record(ctx context.Context, reference string, outcome Outcome) (Outcome, error) {
	if !outcome.IsFinal() {
		return "", ErrNotFinal
	}
	set, err := l.client.SetNX(ctx, redisKeyPrefix+reference, string(outcome), 0).Result()
	if err != nil {
		return "", fmt.Errorf("record payment outcome %s: %w", reference, err)
	}
	if set {
		return outcome, nil
	}
	return l.Outcome(ctx, reference)
}

func (l *RedisLedger) Outcome(ctx context.Context, reference string) (Outcome, error) {
	v, err := l.client.Get(ctx, redisKeyPrefix+reference).Result()
	if errors.Is(err, redis.Nil) {
		return OutcomePending, nil
	}
	if err != nil {
		return "", fmt.Errorf("read payment outcome %s: %w", reference, err)
	}
	return Outcome(v), nil
}

var _ Ledger = (*RedisLedger)(nil)
