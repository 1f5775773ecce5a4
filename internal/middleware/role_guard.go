package middleware

import (
	"net/http"

	"todoapp/internal/domain/model"

	"github.com/labstack/echo/v4"
)

const msgForbidden = "Authorization failed: You do not have permission to access this resource."

// contextに入っているユーザーのロールが許可リストにあるか確認します。
// allowed は authz.Table のメソッド（CanManageUsers など）を渡す。
func RoleGuard(allowed func(model.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, messageJSON(msgNotAuthorized))
			}

			if !allowed(user.Role) {
				return c.JSON(http.StatusForbidden, messageJSON(msgForbidden))
			}

			return next(c)
		}
	}
}
