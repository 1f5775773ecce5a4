package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todoapp/internal/authz"
	"todoapp/internal/config"
	"todoapp/internal/domain/model"
	"todoapp/internal/infra/memory"
	"todoapp/internal/server"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// fixture
// =====================

type api struct {
	t     *testing.T
	e     *echo.Echo
	store *memory.Store
}

type authResp struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
		Name  string `json:"name"`
	} `json:"user"`
}

type todoDTO struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	User      struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type todoResp struct {
	Message string  `json:"message"`
	Todo    todoDTO `json:"todo"`
}

type todoListResp struct {
	Todos []todoDTO `json:"todos"`
}

type messageResp struct {
	Message string `json:"message"`
}

func newAPI(t *testing.T) *api {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	e := server.New(server.Deps{
		Config: config.Config{
			JWTSecret:   "test-secret",
			TokenTTL:    time.Hour,
			BcryptCost:  4,
			CORSOrigins: []string{"*"},
		},
		Log:   log,
		Roles: authz.Default(),
		Users: store.Users(),
		Todos: store.Todos(),
	})
	return &api{t: t, e: e, store: store}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// 登録してからロールを直接書き換える。トークンはそのまま使える
func (a *api) userWithRole(name string, role model.Role) authResp {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": name + "@example.com", "password": "pw-" + name,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[authResp](a.t, rec)

	if role != model.RoleUser {
		require.NoError(a.t, a.store.Users().UpdateRole(context.Background(), res.User.ID, role))
	}
	return res
}

func (a *api) createTodo(token, text string) todoDTO {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/todos", token, map[string]string{"text": text})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[todoResp](a.t, rec).Todo
}

// =====================
// auth
// =====================

func TestAPI_RegisterLoginProfile(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decode[authResp](t, rec)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "user", reg.User.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	// 重複 => 409
	rec = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice2", "email": "alice@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists!!", decode[messageResp](t, rec).Message)

	// パスワード違い => 400
	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid password", decode[messageResp](t, rec).Message)

	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User not found", decode[messageResp](t, rec).Message)

	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authResp](t, rec)

	rec = a.do(http.MethodGet, "/api/auth/myProfile", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Data struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, reg.User.ID, profile.Data.ID)
	assert.Equal(t, "alice@example.com", profile.Data.Email)
}

func TestAPI_Register_MissingFields(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad request: missing parameters!", decode[messageResp](t, rec).Message)
}

func TestAPI_Unauthorized(t *testing.T) {
	a := newAPI(t)

	for _, path := range []string{"/api/auth/myProfile", "/api/auth/users", "/api/todos"} {
		rec := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Not authorized", decode[messageResp](t, rec).Message)

		rec = a.do(http.MethodGet, path, "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

// moderator はユーザー管理もダッシュボードも不可
func TestAPI_ModeratorIsNotUserAdmin(t *testing.T) {
	a := newAPI(t)
	mod := a.userWithRole("mod", model.RoleModerator)
	a.userWithRole("plain", model.RoleUser)

	rec := a.do(http.MethodGet, "/api/auth/users", mod.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Authorization failed: You do not have permission to access this resource.", decode[messageResp](t, rec).Message)

	rec = a.do(http.MethodPut, "/api/auth/changeRole", mod.Token, map[string]string{"email": "plain@example.com", "newRole": "user"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/admin", mod.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_AdminDashboard(t *testing.T) {
	a := newAPI(t)
	admin := a.userWithRole("admin", model.RoleAdmin)
	manager := a.userWithRole("manager", model.RoleManager)

	rec := a.do(http.MethodGet, "/api/auth/admin", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin content", decode[messageResp](t, rec).Message)

	// ダッシュボードは admin のみ
	rec = a.do(http.MethodGet, "/api/auth/admin", manager.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_ListUsers(t *testing.T) {
	a := newAPI(t)
	admin := a.userWithRole("admin", model.RoleAdmin)
	a.userWithRole("plain", model.RoleUser)

	rec := a.do(http.MethodGet, "/api/auth/users", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Users []struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Users, 2)
	assert.NotContains(t, rec.Body.String(), "password")
}

// =====================
// changeRole
// =====================

func TestAPI_ChangeRole_AdminCanChangeAdmin(t *testing.T) {
	a := newAPI(t)
	admin := a.userWithRole("admin", model.RoleAdmin)
	a.userWithRole("admin2", model.RoleAdmin)

	rec := a.do(http.MethodPut, "/api/auth/changeRole", admin.Token, map[string]string{"email": "admin2@example.com", "newRole": "moderator"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Role changed to moderator for admin2@example.com", decode[messageResp](t, rec).Message)
}

func TestAPI_ChangeRole_Denials(t *testing.T) {
	a := newAPI(t)
	admin := a.userWithRole("admin", model.RoleAdmin)
	a.userWithRole("manager", model.RoleManager)
	a.userWithRole("plain", model.RoleUser)

	cases := []struct {
		name    string
		body    map[string]string
		status  int
		message string
	}{
		{"target above", map[string]string{"email": "manager@example.com", "newRole": "user"}, http.StatusForbidden, "Cannot modify users above your hierarchy"},
		{"assign above", map[string]string{"email": "plain@example.com", "newRole": "manager"}, http.StatusForbidden, "Cannot assign role higher than your own"},
		{"invalid role", map[string]string{"email": "plain@example.com", "newRole": "owner"}, http.StatusBadRequest, "Invalid role"},
		{"unranked superAdmin", map[string]string{"email": "plain@example.com", "newRole": "superAdmin"}, http.StatusBadRequest, "Invalid role"},
		{"missing target", map[string]string{"email": "ghost@example.com", "newRole": "user"}, http.StatusNotFound, "Target user not found"},
		{"missing params", map[string]string{"email": "plain@example.com"}, http.StatusBadRequest, "Bad request : missing parameters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(http.MethodPut, "/api/auth/changeRole", admin.Token, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decode[messageResp](t, rec).Message)
		})
	}
}

// ロール変更は再ログインなしで次のリクエストから効く
func TestAPI_ChangeRole_TakesEffectImmediately(t *testing.T) {
	a := newAPI(t)
	manager := a.userWithRole("manager", model.RoleManager)
	plain := a.userWithRole("plain", model.RoleUser)

	rec := a.do(http.MethodGet, "/api/auth/users", plain.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPut, "/api/auth/changeRole", manager.Token, map[string]string{"email": "plain@example.com", "newRole": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/users", plain.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =====================
// todos
// =====================

func TestAPI_Todos_Scoping(t *testing.T) {
	a := newAPI(t)
	alice := a.userWithRole("alice", model.RoleUser)
	bob := a.userWithRole("bob", model.RoleUser)
	manager := a.userWithRole("manager", model.RoleManager)

	aliceTodo := a.createTodo(alice.Token, "alice's")
	a.createTodo(bob.Token, "bob's")

	// manager は全件
	rec := a.do(http.MethodGet, "/api/todos", manager.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[todoListResp](t, rec).Todos, 2)

	// userIdで絞り込み
	rec = a.do(http.MethodGet, "/api/todos?userId="+bob.User.ID, manager.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[todoListResp](t, rec).Todos
	require.Len(t, list, 1)
	assert.Equal(t, "bob@example.com", list[0].User.Email)

	// user は自分の分だけ
	rec = a.do(http.MethodGet, "/api/todos?userId="+alice.User.ID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[todoListResp](t, rec).Todos
	require.Len(t, list, 1)
	assert.Equal(t, "bob's", list[0].Text)

	// 他人のTODOは 404
	rec = a.do(http.MethodPut, "/api/todos/"+aliceTodo.ID, bob.Token, map[string]bool{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo not found or you do not have permission to update it.", decode[messageResp](t, rec).Message)

	rec = a.do(http.MethodDelete, "/api/todos/"+aliceTodo.ID, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 存在しないユーザー指定
	rec = a.do(http.MethodGet, "/api/todos?userId=00000000-0000-0000-0000-000000000000", manager.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Target user not found.", decode[messageResp](t, rec).Message)
}

func TestAPI_Todos_Lifecycle(t *testing.T) {
	a := newAPI(t)
	alice := a.userWithRole("alice", model.RoleUser)

	rec := a.do(http.MethodPost, "/api/todos", alice.Token, map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Todo text is required.", decode[messageResp](t, rec).Message)

	todo := a.createTodo(alice.Token, "write tests")
	assert.Equal(t, alice.User.ID, todo.User.ID)
	assert.False(t, todo.Completed)

	rec = a.do(http.MethodPut, "/api/todos/"+todo.ID, alice.Token, map[string]bool{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[todoResp](t, rec)
	assert.Equal(t, "Todo updated successfully", updated.Message)
	assert.True(t, updated.Todo.Completed)
	assert.Equal(t, "write tests", updated.Todo.Text)

	rec = a.do(http.MethodGet, "/api/todos", alice.Token, nil)
	list := decode[todoListResp](t, rec).Todos
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)

	rec = a.do(http.MethodDelete, "/api/todos/"+todo.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Todo deleted successfully", decode[messageResp](t, rec).Message)

	rec = a.do(http.MethodPut, "/api/todos/"+todo.ID, alice.Token, map[string]bool{"completed": false})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodDelete, "/api/todos/"+todo.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo not found or you do not have permission to delete it.", decode[messageResp](t, rec).Message)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `todoapp_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
