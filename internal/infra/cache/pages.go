package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	pageKeyPrefix  = "lovepage:page:"
	DefaultPageTTL = 10 * time.Minute
)

// PageCache stores encoded public page responses by slug. Published pages
// never change, so entries are only ever dropped by TTL.
//
// A nil *PageCache is valid and behaves as a permanent miss.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewPageCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl, log: log}
}

func (pc *PageCache) Get(ctx context.Context, slug string) ([]byte, bool) {
	if pc == nil || pc.client == nil {
		return nil, false
	}
	val, err := pc.client.Get(ctx, pageKeyPrefix+slug).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		pc.log.Warn().Err(err).Str("slug", slug).Msg("page cache get failed")
		return nil, false
	}
	return val, true
}

// Set is best effort; failures are logged.
func (pc *PageCache) Set(ctx context.Context, slug string, body []byte) {
	if pc == nil || pc.client == nil {
		return
	}
	if err := pc.client.Set(ctx, pageKeyPrefix+slug, body, pc.ttl).Err(); err != nil {
		pc.log.Warn().Err(err).Str("slug", slug).Msg("page cache set failed")
	}
}
