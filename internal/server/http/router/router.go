package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/server/http/handlers"
	"github.com/polkiloo/orderflow/internal/server/http/middleware"
)

// StreamPath serves the restaurant live dashboard. It is never compressed.
const StreamPath = "/api/partner/notifications/stream"

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.OrderflowFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest(middleware.DefaultMaxBody))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{StreamPath})))

	paymentHandler := handlers.NewPaymentHandler(facade, logger)
	orderHandler := handlers.NewOrderHandler(facade)
	streamHandler := handlers.NewStreamHandler(facade, logger, handlers.DefaultHeartbeat)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET("/healthz", healthHandler.Check)

	api := engine.Group("/api")
	api.POST("/payments/confirm", paymentHandler.Confirm)
	api.POST("/stripe/webhook", paymentHandler.Webhook)

	restaurants := api.Group("/restaurants")
	restaurants.Use(middleware.AuthRequired(facade), middleware.RequireRole(model.RoleRestaurant, model.RoleAdmin))
	restaurants.PUT("/orders/:id", orderHandler.UpdateStatus)

	delivery := api.Group("/delivery")
	delivery.Use(middleware.AuthRequired(facade), middleware.RequireRole(model.RoleCourier))
	delivery.POST("/orders/:id/complete", orderHandler.CompleteDelivery)

	partner := api.Group("/partner")
	partner.Use(middleware.StreamAuthRequired(facade), middleware.RequireRole(model.RoleRestaurant))
	partner.GET("/notifications/stream", streamHandler.Stream)

	return engine
}
