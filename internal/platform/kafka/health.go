package kafka

import (
	"context"
	"fmt"
	"time"
)

// Pinger is satisfied by producer.Producer.
type Pinger interface {
	Ping(ctx context.Context) error
}

const defaultHealthTimeout = 2 * time.Second

// HealthCheck adapts a producer into a readiness check with its own deadline.
func HealthCheck(p Pinger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		return nil
	}
}
