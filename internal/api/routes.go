package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/internal/websocket"
)

const serviceName = "voicerelay"

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, supervisor *websocket.Supervisor, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:      "ok",
			Service:     serviceName,
			Connections: hub.Count(),
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.GET("/connections", func(c echo.Context) error {
		return listConnections(c, hub)
	})
	v1.GET("/connections/:id", func(c echo.Context) error {
		return getConnection(c, hub, logger)
	})

	// Relay endpoint. Clients are not authenticated.
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(supervisor, c)
	})
}

func listConnections(c echo.Context, hub *websocket.Hub) error {
	connections := hub.ActiveConnections()
	return c.JSON(http.StatusOK, ConnectionsResponse{
		Count:       len(connections),
		Connections: connections,
	})
}

func getConnection(c echo.Context, hub *websocket.Hub, logger *zap.Logger) error {
	id := c.Param("id")
	conn, ok := hub.Get(id)
	if !ok {
		logger.Debug("Connection lookup missed", zap.String("connectionID", id))
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Connection not found",
		})
	}
	return c.JSON(http.StatusOK, conn)
}
