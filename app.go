package main

import (
	"fmt"
	"strings"

	"lovepage-app/config"
	adminapi "lovepage-app/internal/api/admin"
	"lovepage-app/internal/api/billing"
	identityapi "lovepage-app/internal/api/identity"
	plansapi "lovepage-app/internal/api/plans"
	publishapi "lovepage-app/internal/api/publish"
	siteapi "lovepage-app/internal/api/site"
	stripewebhooks "lovepage-app/internal/api/stripewebhook"
	routes "lovepage-app/internal/app/http"
	"lovepage-app/internal/domain/plans"
	"lovepage-app/internal/domain/templates"
	"lovepage-app/internal/infra/cache"
	"lovepage-app/internal/repository"
	"lovepage-app/internal/service/payments"
	"lovepage-app/internal/service/publish"
	"lovepage-app/internal/service/usage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// app owns every long-lived dependency. Nothing here is package global.
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	reconciler *payments.Reconciler
	engine     *gin.Engine
}

type deps struct {
	DB        *gorm.DB
	Provider  payments.Provider
	PageCache *cache.PageCache
}

func buildApp(cfg *config.Config, log zerolog.Logger, d deps) (*app, error) {
	registry, err := templates.Default()
	if err != nil {
		return nil, fmt.Errorf("load template catalog: %w", err)
	}
	catalog := plans.NewCatalog(plans.Limits{
		FreeMaxPhotos:        cfg.FreeMaxPhotos,
		PremiumMaxPhotos:     cfg.PremiumMaxPhotos,
		StripePremiumPriceID: cfg.StripePremiumPriceID,
	})

	pageRepo := repository.NewPageRepository(d.DB)
	usageRepo := repository.NewUsageRepository(d.DB)
	pendingRepo := repository.NewPendingRepository(d.DB)
	entitlementRepo := repository.NewEntitlementRepository(d.DB)

	writer := publish.NewWriter(pageRepo, log.With().Str("component", "publish").Logger())
	gate := usage.NewGate(usageRepo)

	paymentsLog := log.With().Str("component", "payments").Logger()
	reconciler := &payments.Reconciler{
		Pages:        pageRepo,
		Pending:      pendingRepo,
		Entitlements: entitlementRepo,
		Provider:     d.Provider,
		Publisher:    writer,
		Templates:    registry,
		Plans:        catalog,
		Log:          paymentsLog,
	}
	checkout := payments.NewCheckout(d.Provider, pendingRepo, cfg.AppURL, paymentsLog)

	secure := cfg.IsProduction()
	handlers := routes.Handlers{
		Site: &siteapi.Handler{
			Templates: registry,
			Pages:     pageRepo,
			Cache:     d.PageCache,
			Log:       log,
		},
		Plans: &plansapi.Handler{Catalog: catalog},
		Publish: &publishapi.Handler{
			Templates:        registry,
			Plans:            catalog,
			Gate:             gate,
			Writer:           writer,
			FreePublishLimit: cfg.FreePublishLimit,
			PublicBaseURL:    cfg.PublicPageBaseURL,
			SecureCookies:    secure,
			Log:              log,
		},
		Identity: &identityapi.Handler{SecureCookies: secure},
		Billing: &billing.Handler{
			Templates:  registry,
			Plans:      catalog,
			Checkout:   checkout,
			Reconciler: reconciler,
			Log:        paymentsLog,
		},
		Webhook: &stripewebhooks.Handler{
			Secret:     cfg.StripeWebhookSecret,
			Reconciler: reconciler,
			Log:        paymentsLog,
		},
		Admin: &adminapi.Handler{
			Pages:        pageRepo,
			Entitlements: entitlementRepo,
			Pending:      pendingRepo,
			Reconciler:   reconciler,
			JWTSecret:    []byte(cfg.JWTSecret),
			PasswordHash: cfg.AdminPasswordHash,
			Log:          log,
		},
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine := routes.NewEngine(routes.Options{
		CORSOrigins: splitOrigins(cfg.CORSOrigin),
		Log:         log,
	}, handlers)

	return &app{cfg: cfg, log: log, reconciler: reconciler, engine: engine}, nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = []string{"http://localhost:5173"}
	}
	return out
}
