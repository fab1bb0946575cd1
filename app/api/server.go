package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey, version string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey, version)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey, version string) {
	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// Document and feed endpoints
	r.GET("/documents", handler.ListDocuments)
	r.GET("/documents/:id", handler.GetDocument)
	r.GET("/categories/:category", handler.ListCategory)
	r.GET("/search", handler.Search)
	r.GET("/rss/:category", handler.GetRSS)

	// API endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.POST("/pipeline/run", handler.APIRunPipeline)
			api.POST("/pipeline/stop", handler.APIStopPipeline)
			api.GET("/scheduler", handler.APISchedulerStatus)
			api.POST("/maintenance", handler.APIEnqueueMaintenance)
			api.GET("/runs", handler.APIListRuns)
			api.GET("/errors", handler.APIErrors)
			api.GET("/sites", handler.APIListSites)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled", "reason", "API_ACCESS_KEY not set")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"documents": "/documents",
			"document":  "/documents/<id>",
			"category":  "/categories/<category>",
			"search":    "/search?q=<query>",
			"rss":       "/rss/<category|all>",
			"health":    "/health",
			"stats":     "/stats",
		}

		// Add API endpoints if authentication is enabled
		if apiAccessKey != "" {
			endpoints["run"] = "/api/pipeline/run (POST, requires X-API-Key header)"
			endpoints["stop"] = "/api/pipeline/stop (POST, requires X-API-Key header)"
			endpoints["scheduler"] = "/api/scheduler (requires X-API-Key header)"
			endpoints["maintenance"] = "/api/maintenance (POST, requires X-API-Key header)"
			endpoints["runs"] = "/api/runs (requires X-API-Key header)"
			endpoints["errors"] = "/api/errors (requires X-API-Key header)"
			endpoints["sites"] = "/api/sites (requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "News Comb",
			"version":     version,
			"description": "Scheduled news discovery, extraction and rewriting pipeline",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// Check if API key is provided and matches
		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		// Continue to next middleware/handler
		c.Next()
	}
}
