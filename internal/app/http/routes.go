package routes

import (
	"net/http"
	"time"

	adminapi "lovepage-app/internal/api/admin"
	"lovepage-app/internal/api/billing"
	identityapi "lovepage-app/internal/api/identity"
	plansapi "lovepage-app/internal/api/plans"
	publishapi "lovepage-app/internal/api/publish"
	siteapi "lovepage-app/internal/api/site"
	stripewebhooks "lovepage-app/internal/api/stripewebhook"
	"lovepage-app/internal/app/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handlers struct {
	Site     *siteapi.Handler
	Plans    *plansapi.Handler
	Publish  *publishapi.Handler
	Identity *identityapi.Handler
	Billing  *billing.Handler
	Webhook  *stripewebhooks.Handler
	Admin    *adminapi.Handler

	JWTSecret []byte
}

type Options struct {
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewEngine builds the gin engine with the global middleware stack and all
// routes registered.
func NewEngine(opts Options, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(opts.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// The webhook needs the raw body for signature checks, so it sits
	// outside sanitization and compression.
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.GET("/templates", h.Site.ListTemplates)
	api.GET("/templates/:id", h.Site.GetTemplate)
	api.GET("/pages/:slug", h.Site.GetPage)
	api.GET("/plans", h.Plans.ListPlans)
	api.GET("/identity", h.Identity.GetOrCreate)
	api.GET("/usage", h.Publish.Usage)

	public := api.Group("/")
	public.Use(middleware.SanitizeInput())
	public.POST("/publish", h.Publish.Publish)
	public.POST("/checkout", h.Billing.CreateCheckoutSession)
	public.POST("/payments/confirm", h.Billing.ConfirmPayment)

	r.POST("/admin/login", h.Admin.Login)

	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/dashboard", h.Admin.Dashboard)
	admin.GET("/pending", h.Admin.ListPending)
	admin.POST("/pending/:sessionId/retry", h.Admin.RetryPending)
}
