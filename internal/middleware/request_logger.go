package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// 1リクエスト1行の構造化ログ
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := logrus.Fields{
				"method":     req.Method,
				"path":       c.Path(),
				"uri":        req.RequestURI,
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
			}
			if u, ok := CurrentUser(c); ok {
				fields["user_id"] = u.ID
				fields["role"] = u.Role
			}

			entry := log.WithFields(fields)
			switch {
			case c.Response().Status >= 500:
				entry.Error("request")
			case c.Response().Status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
