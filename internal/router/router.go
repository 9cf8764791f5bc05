package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"zenbridge-backend/internal/config"
	"zenbridge-backend/internal/handlers"
	"zenbridge-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		allowCredentials := true
		maxAge := 3600

		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			allowedOrigins = []string{"*"}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept, X-Request-ID")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter builds the HTTP surface: public submission routes, the admin
// ledger surface behind JWT auth, health and Prometheus endpoints.
func SetupRouter(bridgeHandler *handlers.BridgeHandler, adminHandler *handlers.AdminHandler, logger *logrus.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())
	r.Use(middleware.RequestID())

	// ============ Health Check ============
	r.GET("/health", handlers.HealthCheck)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ Bridge Submission API ============
	bridge := r.Group("/api/bridge")
	{
		bridge.POST("/encrypt", bridgeHandler.EncryptBridgeAmount)
		bridge.POST("/verify", bridgeHandler.VerifyBridgeTransaction)
		bridge.POST("/swap", bridgeHandler.CalculateSwapAmount)
		bridge.POST("/address", bridgeHandler.EncryptBTCAddress)
		bridge.POST("/balance-check", bridgeHandler.VerifySufficientBalance)
		bridge.POST("/proof", bridgeHandler.GenerateBridgeProof)
		bridge.GET("/computations/:id", bridgeHandler.GetComputation)
	}

	// ============ Admin Ledger API (JWT protected) ============
	adminAuth := middleware.NewAdminAuthMiddleware(logger)
	admin := r.Group("/api/admin", adminAuth.RequireAdminAuth())
	{
		admin.GET("/reserve", adminHandler.GetReserveStatus)
		admin.POST("/reserve", adminHandler.UpdateReserve)
		admin.POST("/pause", adminHandler.SetPaused)
		admin.POST("/max-mint", adminHandler.SetMaxMintPerTx)
		admin.POST("/burn", adminHandler.Burn)
		admin.POST("/burn-btc", adminHandler.BurnForBTC)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}
