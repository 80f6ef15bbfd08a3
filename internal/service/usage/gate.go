package usage

import (
	"context"
	"fmt"
)

// Counter is the persistent store behind the gate. IncrementWithCeiling must
// be a single atomic operation on the store side.
type Counter interface {
	IncrementWithCeiling(ctx context.Context, clientID string, limit int) (int, bool, error)
	Count(ctx context.Context, clientID string) (int, error)
}

type Decision struct {
	Allowed      bool `json:"allowed"`
	PublishCount int  `json:"publishCount"`
}

type Gate struct {
	counter Counter
}

func NewGate(counter Counter) *Gate {
	return &Gate{counter: counter}
}

// TryConsumePublish spends one free publish for clientID if the count is
// below limit. A denied decision carries the current count.
func (g *Gate) TryConsumePublish(ctx context.Context, clientID string, limit int) (Decision, error) {
	count, ok, err := g.counter.IncrementWithCeiling(ctx, clientID, limit)
	if err != nil {
		return Decision{}, fmt.Errorf("increment usage: %w", err)
	}
	if ok {
		return Decision{Allowed: true, PublishCount: count}, nil
	}

	current, err := g.counter.Count(ctx, clientID)
	if err != nil {
		return Decision{}, fmt.Errorf("read usage: %w", err)
	}
	return Decision{Allowed: false, PublishCount: current}, nil
}

// GetUsage reads the count without changing it.
func (g *Gate) GetUsage(ctx context.Context, clientID string) (int, error) {
	n, err := g.counter.Count(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return n, nil
}
