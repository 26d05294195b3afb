package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pedicare/clinic-api/internal/handler"
	appointmentHandler "github.com/pedicare/clinic-api/internal/handler/appointment"
	"github.com/pedicare/clinic-api/internal/handler/metrics"
	notificationHandler "github.com/pedicare/clinic-api/internal/handler/notification"
	"github.com/pedicare/clinic-api/internal/middleware"
)

type Config struct {
	RateLimit rate.Limit
	RateBurst int
	CORS      middleware.CORSConfig
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	appointmentH *appointmentHandler.Handler
	notifH       *notificationHandler.Handler
	healthH      *handler.HealthHandler
	metricsH     *metrics.Handler
	config       Config
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	appointmentH *appointmentHandler.Handler,
	notifH *notificationHandler.Handler,
	healthH *handler.HealthHandler,
	metricsH *metrics.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine:       gin.New(),
		auth:         auth,
		appointmentH: appointmentH,
		notifH:       notifH,
		healthH:      healthH,
		metricsH:     metricsH,
		config:       config,
	}
}

func (r *Router) Setup() {
	middleware.RegisterValidators()

	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.ErrorHandler())
	r.engine.Use(middleware.CORS(r.config.CORS))
	r.engine.Use(r.metricsH.Middleware())

	limiter := middleware.NewRateLimiter(r.config.RateLimit, r.config.RateBurst)
	r.engine.Use(limiter.RateLimit())

	r.engine.GET("/health", r.healthH.Health)
	r.engine.GET("/metrics", r.metricsH.Handler())

	api := r.engine.Group("/api")
	r.appointmentH.RegisterRoutes(api, r.auth)
	r.notifH.RegisterRoutes(api, r.auth)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
