package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lovepage-app/internal/domain/billing"
	"lovepage-app/internal/domain/pages"
	"lovepage-app/internal/testsupport"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func TestUsageIncrementWithCeiling(t *testing.T) {
	db := testsupport.NewDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		n, ok, err := repo.IncrementWithCeiling(ctx, "client-aaaa", 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, n)
	}

	n, ok, err := repo.IncrementWithCeiling(ctx, "client-aaaa", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, n)

	count, err := repo.Count(ctx, "client-aaaa")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// raising the limit lets the same client continue
	n, ok, err = repo.IncrementWithCeiling(ctx, "client-aaaa", 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, n)
}

func TestUsageZeroLimitNeverWrites(t *testing.T) {
	db := testsupport.NewDB(t)
	repo := NewUsageRepository(db)

	_, ok, err := repo.IncrementWithCeiling(context.Background(), "client-bbbb", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	var rows int64
	require.NoError(t, db.Model(&pages.PublishUsage{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestUsageConcurrentCallsNeverExceedLimit(t *testing.T) {
	db := testsupport.NewDB(t)
	repo := NewUsageRepository(db)

	const limit = 3
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.IncrementWithCeiling(context.Background(), "client-race", limit)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
	count, err := repo.Count(context.Background(), "client-race")
	require.NoError(t, err)
	assert.Equal(t, limit, count)
}

func TestUsageCountUnknownClient(t *testing.T) {
	repo := NewUsageRepository(testsupport.NewDB(t))
	n, err := repo.Count(context.Background(), "nobody-here")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPageUniqueConstraints(t *testing.T) {
	db := testsupport.NewDB(t)
	repo := NewPageRepository(db)
	ctx := context.Background()
	doc := json.RawMessage(`{"title":"x"}`)

	require.NoError(t, repo.Create(ctx, &pages.Page{Slug: "abcdefgh", TemplateID: "t", Document: doc, Status: pages.StatusPublished}))
	err := repo.Create(ctx, &pages.Page{Slug: "abcdefgh", TemplateID: "t", Document: doc, Status: pages.StatusPublished})
	assert.True(t, IsUniqueViolation(err), "%v", err)

	require.NoError(t, repo.Create(ctx, &pages.Page{Slug: "bcdefghj", TemplateID: "t", Document: doc, EntitlementSessionID: strPtr("cs_1")}))
	err = repo.Create(ctx, &pages.Page{Slug: "cdefghjk", TemplateID: "t", Document: doc, EntitlementSessionID: strPtr("cs_1")})
	assert.True(t, IsUniqueViolation(err), "%v", err)

	// free pages have no back-reference and never collide on it
	require.NoError(t, repo.Create(ctx, &pages.Page{Slug: "defghjkm", TemplateID: "t", Document: doc}))

	p, err := repo.FindBySession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "bcdefghj", p.Slug)
	assert.JSONEq(t, `{"title":"x"}`, string(p.Document))

	_, err = repo.FindBySlug(ctx, "zzzzzzzz")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindBySession(ctx, "cs_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, PageCounts{Total: 3, Paid: 1, Free: 2}, counts)
}

func TestPendingLifecycle(t *testing.T) {
	db := testsupport.NewDB(t)
	pending := NewPendingRepository(db)
	pageRepo := NewPageRepository(db)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		require.NoError(t, pending.Create(ctx, &billing.PendingPublish{
			SessionID:  fmt.Sprintf("cs_%d", i),
			TemplateID: "eternal-love",
			Plan:       "premium",
			Document:   json.RawMessage(`{}`),
		}))
	}

	p, err := pending.Get(ctx, "cs_1")
	require.NoError(t, err)
	assert.Nil(t, p.PaidAt)

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, pending.MarkPaid(ctx, "cs_1", first))
	require.NoError(t, pending.MarkPaid(ctx, "cs_1", first.Add(time.Hour)))
	p, err = pending.Get(ctx, "cs_1")
	require.NoError(t, err)
	require.NotNil(t, p.PaidAt)
	assert.True(t, first.Equal(p.PaidAt.UTC()))

	require.NoError(t, pageRepo.Create(ctx, &pages.Page{Slug: "abcdefgh", TemplateID: "eternal-love", Document: json.RawMessage(`{}`), EntitlementSessionID: strPtr("cs_1")}))

	open, err := pending.ListUnreconciled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "cs_2", open[0].SessionID)

	n, err := pending.CountUnreconciled(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	open, err = pending.ListUnreconciled(ctx, MaxPendingLimit*100)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = pending.Get(ctx, "cs_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntitlementUpsert(t *testing.T) {
	repo := NewEntitlementRepository(testsupport.NewDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &billing.Entitlement{SessionID: "cs_1", Plan: "premium", Status: billing.EntitlementActive}))
	require.NoError(t, repo.Upsert(ctx, &billing.Entitlement{SessionID: "cs_1", Plan: "premium", Status: billing.EntitlementActive, CustomerEmail: strPtr("a@b.c")}))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	e, err := repo.Get(ctx, "cs_1")
	require.NoError(t, err)
	require.NotNil(t, e.CustomerEmail)
	assert.Equal(t, "a@b.c", *e.CustomerEmail)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.Equal(t, "23503", ErrorCode(&pgconn.PgError{Code: "23503"}))
	assert.Equal(t, "", ErrorCode(errors.New("x")))
}
