package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	ginapi "github.com/decagraff/twitch-developer-hub/api/gin"
	"github.com/decagraff/twitch-developer-hub/config"
	"github.com/decagraff/twitch-developer-hub/log"
	"github.com/decagraff/twitch-developer-hub/mongodb"
)

// NewHTTPServer creates and configures the gin HTTP server.
func NewHTTPServer(cfg *config.ServerConfig, appLogger log.Logger, hubAPI *ginapi.HubAPI) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// Structured request logging through the house logger.
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			appLogger.Error(c.Request.Context(), c.Errors.String(), c.Errors.Last().Err, fields)
		} else {
			appLogger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	router.Use(otelgin.Middleware(cfg.OtelServiceName))

	router.GET("/health", func(c *gin.Context) {
		if err := mongodb.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	hubAPI.RegisterRoutes(router)

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
