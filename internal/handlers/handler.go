package handlers

import (
	"github.com/ChristiaanHPutter/Skripsie/internal/logger"
	"github.com/ChristiaanHPutter/Skripsie/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services, the companion link and logging.
type Handler struct {
	services *service.Service
	hub      *LinkHub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, hub *LinkHub, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Companion protocol link (HTTP upgrade), single session
	router.GET("/link", h.hub.serve)

	// Read-only browser state stream (HTTP upgrade)
	router.GET("/ws", h.wsConnect)

	// Versioned API endpoints
	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerCookerRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerCookerRoutes(api *gin.RouterGroup) {
	cooker := api.Group("/cooker")
	{
		cooker.GET("/state", h.getState)
		// Button indexes: 0 select, 1 mode, 2 minus, 3 plus, 4 run/stop
		cooker.POST("/buttons/:index", h.pressButton)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
