package router

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwalitptl/medsafe-api/internal/handler/access"
	"github.com/jwalitptl/medsafe-api/internal/handler/health"
	"github.com/jwalitptl/medsafe-api/internal/handler/ocr"
	"github.com/jwalitptl/medsafe-api/internal/handler/patient"
	"github.com/jwalitptl/medsafe-api/internal/handler/profile"
	"github.com/jwalitptl/medsafe-api/internal/handler/refill"
	"github.com/jwalitptl/medsafe-api/internal/handler/reminder"
	"github.com/jwalitptl/medsafe-api/internal/handler/wearable"
	"github.com/jwalitptl/medsafe-api/internal/middleware"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Handlers struct {
	Health   *health.Handler
	Access   *access.Handler
	Patient  *patient.Handler
	Profile  *profile.Handler
	OCR      *ocr.Handler
	Wearable *wearable.Handler
	Refill   *refill.Handler
	Reminder *reminder.Handler
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	handlers     Handlers
	limiter      *middleware.RateLimiter
	tokenLimiter *middleware.RateLimiter
	metrics      *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	Mode           string
	RateLimit      float64
	RateBurst      int
	TokenRateLimit float64
	TokenRateBurst int
	CORSConfig     middleware.CORSConfig
	MetricsPrefix  string
	Registerer     prometheus.Registerer
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	validator.Setup()
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   config.RateLimit,
			Burst: config.RateBurst,
		}),
		tokenLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   config.TokenRateLimit,
			Burst: config.TokenRateBurst,
		}),
		metrics: initRouterMetrics(config.MetricsPrefix, config.Registerer),
	}

	sizeLimits := middleware.DefaultSizeLimitConfig()
	sizeLimits.RouteBodySize = map[string]int64{
		// base64 image up to 10MB plus the JSON envelope
		"/api/v1/prescriptions/scan": 12 << 20,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(sizeLimits),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.handlers.Health.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(
		r.limiter.RateLimit(),
		middleware.NoStore(),
		r.auth.Authenticate(),
	)
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	r.handlers.Access.RegisterRoutes(rg, r.tokenLimiter.RateLimit())
	r.handlers.Patient.RegisterRoutes(rg)
	r.handlers.OCR.RegisterRoutes(rg)
	r.handlers.Refill.RegisterRoutes(rg)

	patients := rg.Group("")
	patients.Use(r.auth.RequireRole(model.RolePatient))
	for _, h := range []Handler{r.handlers.Profile, r.handlers.Wearable, r.handlers.Reminder} {
		h.RegisterRoutes(patients)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// RunLimiterCleanup drops idle rate limiter entries until ctx is done.
func (r *Router) RunLimiterCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.limiter.Cleanup()
			r.tokenLimiter.Cleanup()
		}
	}
}

func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	factory := promauto.With(reg)
	return &routerMetrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_http_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "class"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		statusLabel := strconv.Itoa(status)

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, statusLabel).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, statusLabel).Inc()

		if status >= 500 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		} else if status >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}
