package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/ian-yc-kim/fs-flowstate-svc/internal/errors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(apperrors.Middleware())

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := s.echo.Group("/api/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.POST("/password-reset/request", s.handlePasswordResetRequest)
	auth.POST("/password-reset/confirm", s.handlePasswordResetConfirm)

	users := s.echo.Group("/api/users", s.requireAuth)
	users.GET("/me", s.handleGetMe)
	users.PUT("/me", s.handleUpdateMe)

	events := s.echo.Group("/api/events", s.requireAuth)
	events.POST("", s.handleCreateEvent)
	events.GET("", s.handleListEvents)
	events.GET("/:id", s.handleGetEvent)
	events.PUT("/:id", s.handleUpdateEvent)
	events.DELETE("/:id", s.handleDeleteEvent)

	inbox := s.echo.Group("/api/inbox", s.requireAuth)
	inbox.POST("", s.handleCreateInboxItem)
	inbox.GET("", s.handleListInboxItems)
	inbox.GET("/:id", s.handleGetInboxItem)
	inbox.PUT("/:id", s.handleUpdateInboxItem)
	inbox.DELETE("/:id", s.handleDeleteInboxItem)
	inbox.POST("/bulk/status", s.handleBulkUpdateInboxStatus)
	inbox.POST("/bulk/archive", s.handleArchiveInboxItems)
	inbox.POST("/:id/convert", s.handleConvertInboxItem)

	s.echo.GET("/ws/sync", s.handleSyncWebSocket)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
