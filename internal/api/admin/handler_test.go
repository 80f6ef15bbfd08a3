package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lovepage-app/internal/domain/billing"
	"lovepage-app/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{}

func (fakeStats) Counts(context.Context) (repository.PageCounts, error) {
	return repository.PageCounts{Total: 3, Paid: 1, Free: 2}, nil
}

type fakeEntitlements struct{}

func (fakeEntitlements) Count(context.Context) (int64, error) { return 1, nil }

type recordingPending struct {
	limits []int
	count  int64
	listed bool
}

func (p *recordingPending) ListUnreconciled(_ context.Context, limit int) ([]billing.PendingPublish, error) {
	p.limits = append(p.limits, limit)
	p.listed = true
	return []billing.PendingPublish{{SessionID: "cs_test_1", TemplateID: "eternal-love", Plan: "premium"}}, nil
}

func (p *recordingPending) CountUnreconciled(context.Context) (int64, error) {
	return p.count, nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/dashboard", h.Dashboard)
	r.GET("/admin/pending", h.ListPending)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDashboardCountsUnreconciledWithoutListing(t *testing.T) {
	pending := &recordingPending{count: 2500}
	r := newRouter(&Handler{Pages: fakeStats{}, Entitlements: fakeEntitlements{}, Pending: pending, Log: zerolog.Nop()})

	w := get(r, "/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_pages":3,"paid_pages":1,"free_pages":2,"entitlements":1,"unreconciled_pending":2500}`, w.Body.String())
	assert.False(t, pending.listed)
}

func TestListPendingClampsLimit(t *testing.T) {
	pending := &recordingPending{}
	r := newRouter(&Handler{Pending: pending, Log: zerolog.Nop()})

	for _, path := range []string{"/admin/pending?limit=10000000", "/admin/pending?limit=20", "/admin/pending"} {
		w := get(r, path)
		require.Equal(t, http.StatusOK, w.Code, path)

		var body struct {
			Pending []AdminPending `json:"pending"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Pending, 1)
	}
	assert.Equal(t, []int{repository.MaxPendingLimit, 20, repository.DefaultPendingLimit}, pending.limits)
}
