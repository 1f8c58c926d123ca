package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gestore-cpu/gestione-doc-security/controller"
	"github.com/gestore-cpu/gestione-doc-security/metrics"
	"github.com/gestore-cpu/gestione-doc-security/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	api.Use(middleware.Auth())

	controllers.Access.RegisterRoutes(api)

	// Policy and alert management is restricted to administrators.
	admin := api.Group("")
	admin.Use(middleware.AdminOnly())
	controllers.Access.RegisterAdminRoutes(admin)
	controllers.Policy.RegisterRoutes(admin)
	controllers.Alert.RegisterRoutes(admin)

	return router
}
