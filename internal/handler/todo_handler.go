package handler

import (
	"net/http"

	"todoapp/internal/middleware"
	"todoapp/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type TodoHandler struct {
	uc  *usecase.TodoUsecase
	log logrus.FieldLogger
}

func NewTodoHandler(uc *usecase.TodoUsecase, log logrus.FieldLogger) *TodoHandler {
	return &TodoHandler{uc: uc, log: log}
}

// gは AuthJWT 済みのグループ
func (h *TodoHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *TodoHandler) Create(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return writeMessage(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	var req usecase.CreateTodoInput
	if err := c.Bind(&req); err != nil {
		return writeMessage(c, http.StatusBadRequest, usecase.MsgTodoTextRequired)
	}

	out, err := h.uc.Create(c.Request().Context(), user, req)
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// GET /api/todos?userId=
func (h *TodoHandler) List(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return writeMessage(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	out, err := h.uc.List(c.Request().Context(), user, c.QueryParam("userId"))
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *TodoHandler) Update(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return writeMessage(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	var req usecase.UpdateTodoInput
	if err := c.Bind(&req); err != nil {
		return writeMessage(c, http.StatusBadRequest, "Invalid request body")
	}

	out, err := h.uc.Update(c.Request().Context(), user, c.Param("id"), req)
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *TodoHandler) Delete(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return writeMessage(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	out, err := h.uc.Delete(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, out)
}
