package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lovepage-app/internal/domain/builder"
	"lovepage-app/internal/domain/pages"
	"lovepage-app/internal/infra/logging"
	"lovepage-app/internal/repository"

	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds slug regeneration on collisions.
const DefaultMaxAttempts = 5

// ErrSlugExhausted means every attempt collided with an existing slug.
var ErrSlugExhausted = errors.New("could not allocate a unique identifier")

// AlreadyPublishedError is returned when the payment session already backs a
// page. It carries that page so callers can answer idempotently.
type AlreadyPublishedError struct {
	Page *pages.Page
}

func (e *AlreadyPublishedError) Error() string {
	return fmt.Sprintf("session already published as %s", e.Page.Slug)
}

type PageStore interface {
	Create(ctx context.Context, p *pages.Page) error
	FindBySession(ctx context.Context, sessionID string) (*pages.Page, error)
}

type Options struct {
	Plan                 string
	EntitlementSessionID string
}

// Writer is the single path through which pages get persisted.
type Writer struct {
	store       PageStore
	newSlug     func() (string, error)
	maxAttempts int
	log         zerolog.Logger
}

type WriterOption func(*Writer)

// WithSlugSource replaces the random slug generator.
func WithSlugSource(fn func() (string, error)) WriterOption {
	return func(w *Writer) { w.newSlug = fn }
}

func WithMaxAttempts(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

func NewWriter(store PageStore, log zerolog.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		store:       store,
		newSlug:     pages.RandomSlug,
		maxAttempts: DefaultMaxAttempts,
		log:         log,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Publish persists doc under a freshly allocated slug. Only slug collisions
// are retried; any other store error is returned as is.
func (w *Writer) Publish(ctx context.Context, templateID string, doc builder.Document, opts Options) (*pages.Page, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	plan := opts.Plan
	if plan == "" {
		plan = "free"
	}
	var sessionRef *string
	if opts.EntitlementSessionID != "" {
		sid := opts.EntitlementSessionID
		sessionRef = &sid
	}

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		slug, err := w.newSlug()
		if err != nil {
			return nil, fmt.Errorf("generate slug: %w", err)
		}

		page := &pages.Page{
			Slug:                 slug,
			TemplateID:           templateID,
			Plan:                 plan,
			Status:               pages.StatusPublished,
			Document:             body,
			EntitlementSessionID: sessionRef,
		}
		err = w.store.Create(ctx, page)
		if err == nil {
			w.log.Info().
				Str("slug", page.Slug).
				Str("template", templateID).
				Str("session", logging.Mask(opts.EntitlementSessionID)).
				Int("attempt", attempt).
				Msg("page published")
			return page, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("insert page: %w", err)
		}

		if sessionRef != nil {
			existing, findErr := w.store.FindBySession(ctx, *sessionRef)
			if findErr == nil {
				return nil, &AlreadyPublishedError{Page: existing}
			}
			if !errors.Is(findErr, repository.ErrNotFound) {
				return nil, fmt.Errorf("check session back-reference: %w", findErr)
			}
		}

		w.log.Warn().Int("attempt", attempt).Msg("slug collision, regenerating")
	}

	return nil, ErrSlugExhausted
}
