package server

import (
	"todoapp/internal/handler"
	"todoapp/internal/metrics"

	"github.com/labstack/echo/v4"
)

type routes struct {
	auth    *handler.AuthHandler
	todos   *handler.TodoHandler
	authMW  echo.MiddlewareFunc
	metrics *metrics.Metrics
}

func registerRoutes(e *echo.Echo, r routes) {
	e.GET("/healthz", handler.Healthz)
	e.GET("/metrics", echo.WrapHandler(r.metrics.Handler()))

	r.auth.RegisterRoutes(e)

	// /api/todos 配下は全部JWT必須
	todos := e.Group("/api/todos", r.authMW)
	r.todos.RegisterRoutes(todos)
}
