package usage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lovepage-app/internal/repository"
	"lovepage-app/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) *Gate {
	return NewGate(repository.NewUsageRepository(testsupport.NewDB(t)))
}

func TestTryConsumePublishUpToLimit(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		d, err := g.TryConsumePublish(ctx, "client-abc", 3)
		require.NoError(t, err)
		assert.Equal(t, Decision{Allowed: true, PublishCount: want}, d)
	}

	d, err := g.TryConsumePublish(ctx, "client-abc", 3)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.GreaterOrEqual(t, d.PublishCount, 3)

	n, err := g.GetUsage(ctx, "client-abc")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTryConsumePublishZeroLimit(t *testing.T) {
	g := newGate(t)
	d, err := g.TryConsumePublish(context.Background(), "client-zero", 0)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: false, PublishCount: 0}, d)
}

func TestTryConsumePublishConcurrent(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := g.TryConsumePublish(ctx, "client-race", 2)
			if !assert.NoError(t, err) {
				return
			}
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, allowed)
}

func TestGetUsageIsReadOnly(t *testing.T) {
	g := newGate(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		n, err := g.GetUsage(ctx, "client-ro")
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

type brokenCounter struct{}

func (brokenCounter) IncrementWithCeiling(context.Context, string, int) (int, bool, error) {
	return 0, false, errors.New("db down")
}
func (brokenCounter) Count(context.Context, string) (int, error) { return 0, errors.New("db down") }

func TestGateWrapsStoreErrors(t *testing.T) {
	g := NewGate(brokenCounter{})
	_, err := g.TryConsumePublish(context.Background(), "client-x", 1)
	assert.ErrorContains(t, err, "increment usage")
	_, err = g.GetUsage(context.Background(), "client-x")
	assert.ErrorContains(t, err, "read usage")
}
