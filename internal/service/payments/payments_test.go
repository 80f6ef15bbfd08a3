package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"lovepage-app/internal/domain/billing"
	"lovepage-app/internal/domain/builder"
	"lovepage-app/internal/domain/pages"
	"lovepage-app/internal/domain/plans"
	"lovepage-app/internal/domain/templates"
	"lovepage-app/internal/repository"
	"lovepage-app/internal/service/publish"
	"lovepage-app/internal/testsupport"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]*CheckoutSession
	getErr   error
	created  []CheckoutRequest
	gets     int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]*CheckoutSession{}}
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	s := &CheckoutSession{
		ID:            "cs_test_" + string(rune('a'+len(f.created))),
		URL:           "https://checkout.example/pay",
		PaymentStatus: "unpaid",
		Metadata:      req.Metadata,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeProvider) GetCheckoutSession(_ context.Context, id string) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeProvider) setStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].PaymentStatus = status
}

type env struct {
	db           *gorm.DB
	provider     *fakeProvider
	pending      *repository.PendingRepository
	entitlements *repository.EntitlementRepository
	pages        *repository.PageRepository
	checkout     *Checkout
	reconciler   *Reconciler
	catalog      *plans.Catalog
	registry     *templates.Registry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testsupport.NewDB(t)
	reg, err := templates.Default()
	require.NoError(t, err)

	log := zerolog.New(io.Discard)
	e := &env{
		db:           db,
		provider:     newFakeProvider(),
		pending:      repository.NewPendingRepository(db),
		entitlements: repository.NewEntitlementRepository(db),
		pages:        repository.NewPageRepository(db),
		catalog:      plans.NewCatalog(plans.Limits{FreeMaxPhotos: 3, PremiumMaxPhotos: 12, StripePremiumPriceID: "price_premium"}),
		registry:     reg,
	}
	e.checkout = NewCheckout(e.provider, e.pending, "https://lovepage.test/", log)
	e.reconciler = &Reconciler{
		Pages:        e.pages,
		Pending:      e.pending,
		Entitlements: e.entitlements,
		Provider:     e.provider,
		Publisher:    publish.NewWriter(e.pages, log),
		Templates:    reg,
		Plans:        e.catalog,
		Log:          log,
	}
	return e
}

func (e *env) startCheckout(t *testing.T, photos int) string {
	t.Helper()
	tmpl, _ := e.registry.Lookup("eternal-love")
	doc := tmpl.DefaultDocument()
	for i := 0; i < photos; i++ {
		doc.Photos = append(doc.Photos, builder.Photo{ID: string(rune('a' + i)), Order: float64(i)})
	}
	premium, err := e.catalog.Checkout("premium")
	require.NoError(t, err)

	s, err := e.checkout.Start(context.Background(), StartRequest{
		TemplateID: tmpl.ID,
		Document:   doc,
		Plan:       premium,
		ClientID:   "client-1234",
	})
	require.NoError(t, err)
	return s.ID
}

func (e *env) pageCount(t *testing.T, sessionID string) int64 {
	var n int64
	require.NoError(t, e.db.Model(&pages.Page{}).Where("entitlement_session_id = ?", sessionID).Count(&n).Error)
	return n
}

func TestCheckoutStoresPendingPublish(t *testing.T) {
	e := newEnv(t)
	sid := e.startCheckout(t, 5)

	require.Len(t, e.provider.created, 1)
	req := e.provider.created[0]
	assert.Equal(t, "price_premium", req.PriceID)
	assert.Equal(t, "https://lovepage.test/checkout/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "eternal-love", req.Metadata["template_id"])

	p, err := e.pending.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, "premium", p.Plan)
	assert.Nil(t, p.PaidAt)
	require.NotNil(t, p.ClientID)
	assert.Equal(t, "client-1234", *p.ClientID)

	var doc builder.Document
	require.NoError(t, json.Unmarshal(p.Document, &doc))
	assert.Len(t, doc.Photos, 5)
	assert.Zero(t, e.pageCount(t, sid))
}

func TestCheckoutRejectsPlanWithoutPrice(t *testing.T) {
	e := newEnv(t)
	_, err := e.checkout.Start(context.Background(), StartRequest{TemplateID: "eternal-love", Plan: e.catalog.Free()})
	assert.Error(t, err)
	assert.Empty(t, e.provider.created)
}

func TestConfirmIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sid := e.startCheckout(t, 5)
	e.provider.setStatus(sid, "paid")

	first, err := e.reconciler.Confirm(ctx, sid)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.True(t, pages.ValidSlug(first.Slug))

	second, err := e.reconciler.Confirm(ctx, sid)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Slug, second.Slug)

	assert.EqualValues(t, 1, e.pageCount(t, sid))

	page, err := e.pages.FindBySlug(ctx, first.Slug)
	require.NoError(t, err)
	assert.Equal(t, "premium", page.Plan)
	var doc builder.Document
	require.NoError(t, json.Unmarshal(page.Document, &doc))
	assert.Len(t, doc.Photos, 5)

	ent, err := e.entitlements.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, billing.EntitlementActive, ent.Status)

	pending, err := e.pending.Get(ctx, sid)
	require.NoError(t, err)
	assert.NotNil(t, pending.PaidAt)
}

func TestConfirmConcurrentCallsCreateOnePage(t *testing.T) {
	e := newEnv(t)
	sid := e.startCheckout(t, 1)
	e.provider.setStatus(sid, "paid")

	var wg sync.WaitGroup
	slugs := make([]string, 6)
	for i := range slugs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.reconciler.Confirm(context.Background(), sid)
			if assert.NoError(t, err) {
				slugs[i] = res.Slug
			}
		}(i)
	}
	wg.Wait()

	for _, s := range slugs {
		assert.Equal(t, slugs[0], s)
	}
	assert.EqualValues(t, 1, e.pageCount(t, sid))
}

func TestConfirmNotPaid(t *testing.T) {
	e := newEnv(t)
	sid := e.startCheckout(t, 0)

	_, err := e.reconciler.Confirm(context.Background(), sid)
	assert.Equal(t, CodeNotPaid, FailureCode(err))
	assert.Zero(t, e.pageCount(t, sid))

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.True(t, f.Retryable())

	_, err = e.entitlements.Get(context.Background(), sid)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConfirmUnknownSessionCreatesNoState(t *testing.T) {
	e := newEnv(t)
	_, err := e.reconciler.Confirm(context.Background(), "cs_unknown")
	assert.Equal(t, CodePendingMissing, FailureCode(err))

	var n int64
	for _, m := range []any{&pages.Page{}, &billing.Entitlement{}, &billing.PendingPublish{}} {
		require.NoError(t, e.db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
}

func TestConfirmMissingSessionID(t *testing.T) {
	e := newEnv(t)
	_, err := e.reconciler.Confirm(context.Background(), "   ")
	assert.Equal(t, CodeMissingSessionID, FailureCode(err))
}

func TestConfirmProviderDoesNotKnowSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.pending.Create(ctx, &billing.PendingPublish{
		SessionID: "cs_orphan", TemplateID: "eternal-love", Plan: "premium", Document: json.RawMessage(`{}`),
	}))

	_, err := e.reconciler.Confirm(ctx, "cs_orphan")
	assert.Equal(t, CodeSessionNotFound, FailureCode(err))
	assert.Zero(t, e.pageCount(t, "cs_orphan"))
}

func TestConfirmProviderError(t *testing.T) {
	e := newEnv(t)
	sid := e.startCheckout(t, 0)
	e.provider.getErr = errors.New("stripe: connection refused")

	_, err := e.reconciler.Confirm(context.Background(), sid)
	assert.Equal(t, CodePaymentError, FailureCode(err))
}

type failingMarkPaid struct {
	*repository.PendingRepository
}

func (failingMarkPaid) MarkPaid(context.Context, string, time.Time) error {
	return errors.New("write timeout")
}

func TestConfirmSurvivesMarkPaidFailure(t *testing.T) {
	e := newEnv(t)
	e.reconciler.Pending = failingMarkPaid{e.pending}
	sid := e.startCheckout(t, 0)
	e.provider.setStatus(sid, "paid")

	res, err := e.reconciler.Confirm(context.Background(), sid)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Slug)
	assert.EqualValues(t, 1, e.pageCount(t, sid))
}

func TestConfirmInvalidTemplateKeepsPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sid := e.startCheckout(t, 0)
	e.provider.setStatus(sid, "paid")
	require.NoError(t, e.db.Model(&billing.PendingPublish{}).Where("session_id = ?", sid).Update("template_id", "gone").Error)

	_, err := e.reconciler.Confirm(ctx, sid)
	assert.Equal(t, CodeInvalidTemplate, FailureCode(err))
	assert.Zero(t, e.pageCount(t, sid))

	_, err = e.pending.Get(ctx, sid)
	assert.NoError(t, err)
}

type brokenPublisher struct{}

func (brokenPublisher) Publish(context.Context, string, builder.Document, publish.Options) (*pages.Page, error) {
	return nil, publish.ErrSlugExhausted
}

func TestConfirmPublishFailureIsRetryable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sid := e.startCheckout(t, 0)
	e.provider.setStatus(sid, "paid")

	good := e.reconciler.Publisher
	e.reconciler.Publisher = brokenPublisher{}
	_, err := e.reconciler.Confirm(ctx, sid)
	assert.Equal(t, CodePublishFailed, FailureCode(err))
	assert.ErrorIs(t, err, publish.ErrSlugExhausted)

	_, err = e.pending.Get(ctx, sid)
	require.NoError(t, err)

	e.reconciler.Publisher = good
	res, err := e.reconciler.Confirm(ctx, sid)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Slug)
}

func TestConfirmRecoercesPendingDocument(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sid := e.startCheckout(t, 0)
	e.provider.setStatus(sid, "paid")

	photos := `[{"id":"b","order":2},{"id":"a","order":1}]`
	require.NoError(t, e.db.Model(&billing.PendingPublish{}).Where("session_id = ?", sid).
		Update("document", json.RawMessage(`{"title":"Us","photos":`+photos+`,"titleSize":"huge"}`)).Error)

	res, err := e.reconciler.Confirm(ctx, sid)
	require.NoError(t, err)

	page, err := e.pages.FindBySlug(ctx, res.Slug)
	require.NoError(t, err)
	var doc builder.Document
	require.NoError(t, json.Unmarshal(page.Document, &doc))
	assert.Equal(t, "Us", doc.Title)
	require.Len(t, doc.Photos, 2)
	assert.Equal(t, "a", doc.Photos[0].ID)

	tmpl, _ := e.registry.Lookup("eternal-love")
	assert.Equal(t, tmpl.DefaultDocument().TitleSize, doc.TitleSize)
}
