package middleware

import (
	"net/http"
	"strings"

	"todoapp/internal/domain/model"
	"todoapp/internal/repository"
	"todoapp/internal/security"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	CtxUserKey = "user" // *model.User
)

// 401の理由は呼び出し側には区別させない
const msgNotAuthorized = "Not authorized"

type messageResponse struct {
	Message string `json:"message"`
}

func messageJSON(msg string) messageResponse {
	return messageResponse{Message: msg}
}

// bearerAuth用のJWT検証ミドルウェア。
// トークンのidでDBから最新のユーザーを引き、contextに保存する。
// ロール変更は次のリクエストから反映される。
func AuthJWT(parser security.TokenParser, users repository.UserRepository, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, messageJSON(msgNotAuthorized))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, messageJSON(msgNotAuthorized))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, messageJSON(msgNotAuthorized))
			}

			//JWTをパースして検証する
			claims, err := parser.Parse(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, messageJSON(msgNotAuthorized))
			}

			//DBから最新のuserを取得する
			user, err := users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil {
				log.WithError(err).WithField("user_id", claims.UserID).Error("load user for token")
				return c.JSON(http.StatusUnauthorized, messageJSON(msgNotAuthorized))
			}
			if user == nil {
				return c.JSON(http.StatusUnauthorized, messageJSON(msgNotAuthorized))
			}

			//contextへ保存
			c.Set(CtxUserKey, user)

			return next(c)
		}
	}
}

// AuthJWTが入れたユーザーを取り出す
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(CtxUserKey).(*model.User)
	return u, ok && u != nil
}
