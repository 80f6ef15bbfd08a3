package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lovepage-app/internal/domain/billing"
	"lovepage-app/internal/domain/builder"
	"lovepage-app/internal/domain/pages"
	"lovepage-app/internal/domain/plans"
	"lovepage-app/internal/domain/templates"
	"lovepage-app/internal/infra/logging"
	"lovepage-app/internal/repository"
	"lovepage-app/internal/service/publish"

	"github.com/rs/zerolog"
)

type PageFinder interface {
	FindBySession(ctx context.Context, sessionID string) (*pages.Page, error)
}

type PendingStore interface {
	Get(ctx context.Context, sessionID string) (*billing.PendingPublish, error)
	MarkPaid(ctx context.Context, sessionID string, at time.Time) error
}

type EntitlementStore interface {
	Upsert(ctx context.Context, e *billing.Entitlement) error
}

type Publisher interface {
	Publish(ctx context.Context, templateID string, doc builder.Document, opts publish.Options) (*pages.Page, error)
}

type TemplateSource interface {
	Lookup(id string) (templates.Template, bool)
}

type Result struct {
	Slug string
	// Replayed is true when the page already existed for the session.
	Replayed bool
}

type Reconciler struct {
	Pages        PageFinder
	Pending      PendingStore
	Entitlements EntitlementStore
	Provider     Provider
	Publisher    Publisher
	Templates    TemplateSource
	Plans        *plans.Catalog
	Log          zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Confirm turns a paid checkout session into exactly one page. It is safe to
// call any number of times for the same session; the page's session
// back-reference is the only idempotency key.
func (r *Reconciler) Confirm(ctx context.Context, sessionID string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, fail(CodeMissingSessionID, nil)
	}
	log := r.Log.With().Str("session", logging.Mask(sessionID)).Logger()

	existing, err := r.Pages.FindBySession(ctx, sessionID)
	switch {
	case err == nil:
		log.Debug().Str("slug", existing.Slug).Msg("session already reconciled")
		return Result{Slug: existing.Slug, Replayed: true}, nil
	case !errors.Is(err, repository.ErrNotFound):
		log.Error().Err(err).Msg("page lookup failed")
		return Result{}, fail(CodePublishFailed, err)
	}

	pending, err := r.Pending.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, fail(CodePendingMissing, err)
		}
		log.Error().Err(err).Msg("pending lookup failed")
		return Result{}, fail(CodePublishFailed, err)
	}

	if r.Provider == nil {
		return Result{}, fail(CodePaymentError, errors.New("payment provider not configured"))
	}
	session, err := r.Provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Result{}, fail(CodeSessionNotFound, err)
		}
		log.Error().Err(err).Msg("payment provider lookup failed")
		return Result{}, fail(CodePaymentError, err)
	}
	if session.PaymentStatus != PaymentStatusPaid {
		return Result{}, fail(CodeNotPaid, fmt.Errorf("payment status %q", session.PaymentStatus))
	}

	if err := r.Pending.MarkPaid(ctx, sessionID, r.now()); err != nil {
		log.Warn().Err(err).Msg("could not stamp pending publish as paid")
	}

	planKey := plans.NormalizeKey(pending.Plan)
	ent := &billing.Entitlement{
		SessionID: sessionID,
		Plan:      planKey,
		Status:    billing.EntitlementActive,
	}
	if session.CustomerEmail != "" {
		email := session.CustomerEmail
		ent.CustomerEmail = &email
	}
	if err := r.Entitlements.Upsert(ctx, ent); err != nil {
		log.Error().Err(err).Msg("entitlement upsert failed")
		return Result{}, fail(CodePublishFailed, err)
	}

	tmpl, ok := r.Templates.Lookup(pending.TemplateID)
	if !ok {
		log.Error().Str("template", pending.TemplateID).Msg("pending publish references unknown template")
		return Result{}, fail(CodeInvalidTemplate, fmt.Errorf("unknown template %q", pending.TemplateID))
	}

	var raw any
	if err := json.Unmarshal(pending.Document, &raw); err != nil {
		log.Warn().Err(err).Msg("pending document is not valid JSON, using template defaults")
	}
	res := tmpl.Coerce(raw, r.Plans.MaxPhotos(planKey))

	page, err := r.Publisher.Publish(ctx, tmpl.ID, res.Document, publish.Options{
		Plan:                 planKey,
		EntitlementSessionID: sessionID,
	})
	if err != nil {
		var already *publish.AlreadyPublishedError
		if errors.As(err, &already) {
			log.Info().Str("slug", already.Page.Slug).Msg("lost reconcile race, returning existing page")
			return Result{Slug: already.Page.Slug, Replayed: true}, nil
		}
		log.Error().Err(err).Msg("publish failed")
		return Result{}, fail(CodePublishFailed, err)
	}

	log.Info().Str("slug", page.Slug).Str("plan", planKey).Msg("payment reconciled")
	return Result{Slug: page.Slug}, nil
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
