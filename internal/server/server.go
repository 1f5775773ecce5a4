package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"todoapp/internal/authz"
	"todoapp/internal/config"
	"todoapp/internal/handler"
	"todoapp/internal/metrics"
	"todoapp/internal/middleware"
	"todoapp/internal/repository"
	"todoapp/internal/security"
	"todoapp/internal/usecase"
	"todoapp/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Deps はサーバーの組み立てに必要な部品
type Deps struct {
	Config  config.Config
	Log     *logrus.Logger
	Roles   *authz.Table
	Users   repository.UserRepository
	Todos   repository.TodoRepository
	Metrics *metrics.Metrics
}

// Auth usecase。CLIの set-role からも使う
func NewAuthUsecase(d Deps) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(
		d.Users,
		d.Roles,
		security.NewBcryptPasswordHasher(d.Config.BcryptCost),
		security.NewBcryptPasswordVerifier(),
		security.NewJWTManager(d.Config.JWTSecret, d.Config.TokenTTL),
		validator.New(),
		usecase.UUIDGenerator{},
		usecase.SystemClock{},
	)
}

// New はechoを組み立てる（middleware + ルート）
func New(d Deps) *echo.Echo {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	v := validator.New()
	jwtm := security.NewJWTManager(d.Config.JWTSecret, d.Config.TokenTTL)

	authUC := NewAuthUsecase(d)
	todoUC := usecase.NewTodoUsecase(d.Todos, d.Users, d.Roles, v, usecase.UUIDGenerator{}, usecase.SystemClock{})

	authMW := middleware.AuthJWT(jwtm, d.Users, d.Log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.Config.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(d.Metrics.Middleware())
	e.Use(middleware.RequestLogger(d.Log))

	registerRoutes(e, routes{
		auth:    handler.NewAuthHandler(authUC, authMW, d.Roles, d.Log),
		todos:   handler.NewTodoHandler(todoUC, d.Log),
		authMW:  authMW,
		metrics: d.Metrics,
	})

	return e
}

// Start はctxがキャンセルされるまでHTTPを提供し、その後graceful shutdownする
func Start(ctx context.Context, e *echo.Echo, addr string, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
