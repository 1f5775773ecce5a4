package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// 呼び出し側に返すメッセージ（そのままレスポンスに載る）
const (
	MsgRegisterMissing  = "Bad request: missing parameters!"
	MsgMissingParams    = "Bad request : missing parameters"
	MsgUserExists       = "User already exists!!"
	MsgUserNotFound     = "User not found"
	MsgInvalidPassword  = "Invalid password"
	MsgInvalidRole      = "Invalid role"
	MsgTargetNotFound   = "Target user not found"
	MsgTargetAbove      = "Cannot modify users above your hierarchy"
	MsgAssignAbove      = "Cannot assign role higher than your own"
	MsgTodoTextRequired = "Todo text is required."
	MsgTodoOwnerMissing = "Target user not found."
	MsgTodoUpdate404    = "Todo not found or you do not have permission to update it."
	MsgTodoDelete404    = "Todo not found or you do not have permission to delete it."
	MsgInternal         = "Internal server error"
)

// HTTPError はステータスとメッセージを持つusecaseのエラー。
// Errには原因（ログ用）を入れる。
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 400
func validationError(msg string) error {
	return NewHTTPError(http.StatusBadRequest, msg)
}

// 403
func forbidden(msg string) error {
	return NewHTTPError(http.StatusForbidden, msg)
}

// 404
func notFound(msg string) error {
	return NewHTTPError(http.StatusNotFound, msg)
}

// 409
func conflict(msg string) error {
	return NewHTTPError(http.StatusConflict, msg)
}

// 500。原因は呼び出し側に見せない
func internal(op string, err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: MsgInternal,
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}
