package routes

import (
	"net/http"
	"time"

	"github.com/gamershop/gamershop/controllers"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Handlers groups every controller the router mounts
type Handlers struct {
	Auth      *controllers.AuthController
	Products  *controllers.ProductController
	Taxonomy  *controllers.TaxonomyController
	Reviews   *controllers.ReviewController
	Orders    *controllers.OrderController
	Coupons   *controllers.CouponController
	Dashboard *controllers.DashboardController
	Health    *controllers.HealthController
}

// Options carries the router level settings
type Options struct {
	SessionSecret string
	SecureCookies bool
	AllowedOrigin string
	UploadDir     string
	RateCounter   utils.RateCounter
	RateLimit     int
	RateWindow    time.Duration
	// Auth must authenticate the bearer token; Admin must run after it
	Auth  gin.HandlerFunc
	Admin gin.HandlerFunc
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(
		utils.RequestIDMiddleware(),
		utils.LoggerMiddleware(),
		utils.RecoveryMiddleware(),
		utils.CORSMiddleware(opts.AllowedOrigin),
		utils.SecurityHeadersMiddleware(),
	)

	// Session cookie only carries the OAuth state
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		MaxAge:   60 * 10,
		Path:     "/",
		Secure:   opts.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("gamershop", store))

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)
	if opts.UploadDir != "" {
		router.Static("/uploads", opts.UploadDir)
	}

	api := router.Group("/api")
	api.Use(utils.RateLimitMiddleware(opts.RateCounter, opts.RateLimit, opts.RateWindow))
	{
		initPublicRoutes(api, h)
		initUserRoutes(api, h, opts.Auth)
		initAdminRoutes(api, h, opts.Auth, opts.Admin)
	}

	router.NoRoute(func(c *gin.Context) {
		utils.NotFound(c, "Route not found")
	})
	return router
}
