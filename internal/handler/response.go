package handler

import (
	"net/http"

	"todoapp/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const msgNotAuthorized = "Not authorized"

type messageResponse struct {
	Message string `json:"message"`
}

func writeMessage(c echo.Context, status int, msg string) error {
	return c.JSON(status, messageResponse{Message: msg})
}

// usecaseのエラーを {"message"} に変換する。
// 500の中身はログにだけ出す
func writeUsecaseError(c echo.Context, log logrus.FieldLogger, err error) error {
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Error("request failed")
		}
		return writeMessage(c, he.Status, he.Message)
	}

	log.WithError(err).WithField("path", c.Path()).Error("unexpected error")
	return writeMessage(c, http.StatusInternalServerError, usecase.MsgInternal)
}
