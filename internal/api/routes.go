package api

import (
	"github.com/gin-gonic/gin"

	"sharide/internal/api/handlers"
	"sharide/internal/api/middleware"
	"sharide/internal/auth"
	"sharide/internal/connectivity"
	"sharide/internal/metrics"
)

type Router struct {
	ratingHandler       *handlers.RatingHandler
	directoryHandler    *handlers.DirectoryHandler
	notificationHandler *handlers.NotificationHandler
	healthHandler       *handlers.HealthHandler

	jwtManager *auth.JWTManager
	observer   *connectivity.Observer
	metrics    *metrics.Metrics
}

func NewRouter(
	ratingHandler *handlers.RatingHandler,
	directoryHandler *handlers.DirectoryHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
	jwtManager *auth.JWTManager,
	observer *connectivity.Observer,
	m *metrics.Metrics,
) *Router {
	return &Router{
		ratingHandler:       ratingHandler,
		directoryHandler:    directoryHandler,
		notificationHandler: notificationHandler,
		healthHandler:       healthHandler,
		jwtManager:          jwtManager,
		observer:            observer,
		metrics:             m,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler.Health)
	engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	// Protected routes
	api := engine.Group("/")
	api.Use(middleware.JWTAuth(r.jwtManager))
	{
		// Ledger and directory need the store; notifications are local.
		online := api.Group("/")
		online.Use(middleware.RequireConnectivity(r.observer))
		{
			online.POST("/ratings", r.ratingHandler.RecordRating)
			online.GET("/ratings/:user_id/average", r.ratingHandler.GetAverage)
			online.GET("/ratings/:user_id/history", r.ratingHandler.GetHistory)
			online.GET("/ratings/:user_id/received", r.ratingHandler.GetReceived)

			online.GET("/directory/:collection", r.directoryHandler.Search)
			online.GET("/directory/:collection/:id", r.directoryHandler.Get)

			admin := online.Group("/")
			admin.Use(middleware.RequireRole(auth.RoleAdmin))
			{
				admin.PATCH("/directory/:collection/:id", r.directoryHandler.Update)
				admin.GET("/admin/:admin_id/group", r.directoryHandler.GroupForAdmin)
				admin.GET("/groups/:group_id/members", r.directoryHandler.MembersOfGroup)
			}
		}

		api.GET("/notifications", r.notificationHandler.List)
		api.DELETE("/notifications", r.notificationHandler.Clear)
		api.DELETE("/notifications/:id", r.notificationHandler.Delete)
	}
}
