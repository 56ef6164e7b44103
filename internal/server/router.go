package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oggyb/tembichat/internal/app"
	"github.com/oggyb/tembichat/internal/logger"
	"github.com/oggyb/tembichat/internal/metrics"
)

const requestIDHeader = "X-Request-Id"

// RouterOptions tune NewRouter; the zero value is production behavior.
type RouterOptions struct {
	// Auth guards the protected group.
	Auth gin.HandlerFunc
	// Limiter throttles the public group. Nil disables throttling.
	Limiter *RateLimiter
}

// NewRouter builds the gin engine: shared middleware, health and metrics
// endpoints, and every registrar mounted under /api.
func NewRouter(appCtx *app.AppContext, opts RouterOptions, registrars ...Registrar) *gin.Engine {
	switch appCtx.Config.App.ENV {
	case "development":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		requestID(appCtx),
		accessLog(appCtx),
		gin.Recovery(),
		cors.New(corsConfig(appCtx.Config.HTTP.CORSOrigins)),
		metrics.GinMiddleware(),
	)

	r.GET("/healthz", health(appCtx))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	public := r.Group("/api")
	if opts.Limiter != nil {
		public.Use(opts.Limiter.Middleware())
	}
	protected := r.Group("/api")
	if opts.Auth != nil {
		protected.Use(opts.Auth)
	}

	for _, reg := range registrars {
		reg.Register(public, protected)
		appCtx.Logger.Debug("routes registered", "registrar", reg.Name())
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requestID echoes or mints X-Request-Id and scopes the request logger to it.
func requestID(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)

		l := appCtx.Logger.With("request_id", id)
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), l))
		c.Next()
	}
}

func accessLog(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		l := logger.FromContext(c.Request.Context(), appCtx.Logger)
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http request", args...)
		case status >= http.StatusBadRequest:
			l.Warn("http request", args...)
		default:
			l.Info("http request", args...)
		}
	}
}

// health reports database and Redis reachability. Driver errors are logged,
// never returned. Only a dead database makes the process unhealthy.
func health(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		l := logger.FromContext(c.Request.Context(), appCtx.Logger)
		body := gin.H{"status": "ok", "db": "ok", "redis": "ok"}
		status := http.StatusOK

		if err := pingDB(ctx, appCtx); err != nil {
			l.Error("health: database unreachable", "err", err)
			body["db"], body["status"], status = "unavailable", "unavailable", http.StatusServiceUnavailable
		}

		if appCtx.RedisCache == nil {
			body["redis"] = "disabled"
		} else if err := appCtx.RedisCache.Ping(ctx); err != nil {
			l.Warn("health: redis unreachable", "err", err)
			body["redis"] = "unavailable"
			if status == http.StatusOK {
				body["status"] = "degraded"
			}
		}

		c.JSON(status, body)
	}
}

func pingDB(ctx context.Context, appCtx *app.AppContext) error {
	sqlDB, err := appCtx.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
