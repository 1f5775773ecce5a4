package handler

import (
	"net/http"

	"todoapp/internal/authz"
	"todoapp/internal/middleware"
	"todoapp/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	uc    *usecase.AuthUsecase
	auth  echo.MiddlewareFunc
	roles *authz.Table
	log   logrus.FieldLogger
}

// authは AuthJWT。ルート登録時にグループへ付ける
func NewAuthHandler(uc *usecase.AuthUsecase, auth echo.MiddlewareFunc, roles *authz.Table, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{uc: uc, auth: auth, roles: roles, log: log}
}

type profileResponse struct {
	Data usecase.UserDTO `json:"data"`
}

type usersResponse struct {
	Users []usecase.UserDTO `json:"users"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/auth")

	// 公開
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)

	// JWT必須
	g.GET("/myProfile", h.MyProfile, h.auth)
	g.GET("/admin", h.AdminDashboard, h.auth, middleware.RoleGuard(h.roles.CanViewDashboard))

	// JWT必須 + ユーザー管理ロール限定
	g.PUT("/changeRole", h.ChangeRole, h.auth, middleware.RoleGuard(h.roles.CanManageUsers))
	g.GET("/users", h.Users, h.auth, middleware.RoleGuard(h.roles.CanManageUsers))
}

// POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req usecase.RegisterInput
	if err := c.Bind(&req); err != nil {
		return writeMessage(c, http.StatusBadRequest, usecase.MsgRegisterMissing)
	}

	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req usecase.LoginInput
	if err := c.Bind(&req); err != nil {
		return writeMessage(c, http.StatusBadRequest, usecase.MsgMissingParams)
	}

	out, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, out)
}

// GET /api/auth/myProfile
func (h *AuthHandler) MyProfile(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return writeMessage(c, http.StatusUnauthorized, msgNotAuthorized)
	}
	return c.JSON(http.StatusOK, profileResponse{Data: usecase.ToUserDTO(user)})
}

// GET /api/auth/admin
func (h *AuthHandler) AdminDashboard(c echo.Context) error {
	return writeMessage(c, http.StatusOK, "admin content")
}

// PUT /api/auth/changeRole
func (h *AuthHandler) ChangeRole(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return writeMessage(c, http.StatusUnauthorized, msgNotAuthorized)
	}

	var req usecase.ChangeRoleInput
	if err := c.Bind(&req); err != nil {
		return writeMessage(c, http.StatusBadRequest, usecase.MsgMissingParams)
	}

	out, err := h.uc.ChangeRole(c.Request().Context(), user, req)
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, out)
}

// GET /api/auth/users
func (h *AuthHandler) Users(c echo.Context) error {
	users, err := h.uc.ListUsers(c.Request().Context())
	if err != nil {
		return writeUsecaseError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users})
}
