package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes.
func (a *Application) setupRoutes() {
	a.router.Use(securityHeadersMiddleware())
	a.router.Use(requestMiddleware(a.logger, a.metrics))

	// Liveness never checks dependencies.
	a.router.GET("/healthz", a.healthHandler)
	a.router.HEAD("/healthz", a.healthHandler)

	a.router.GET("/readyz", a.readyHandler)
	a.router.HEAD("/readyz", a.readyHandler)

	a.router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsPassword != "", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	v1 := a.router.Group("/v1", bearerAuthMiddleware(a.cfg.APIToken))
	v1.POST("/intents", a.upsertIntentHandler)
	v1.DELETE("/intents/:id", a.deleteIntentHandler)
	v1.PUT("/profiles/:userID", a.upsertProfileHandler)
	v1.GET("/users/:userID/matches", a.matchesHandler)
	v1.POST("/admin/sweep", a.sweepHandler)

	a.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
