// Package validator は go-playground/validator をラップして、
// リクエスト入力の必須チェックなどを行う。
package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	// 前後の空白を除いて空でないこと
	_ = v.RegisterValidation("nonblank", nonBlank)
	return &Validator{v: v}
}

// Validate は echo.Validator と同じ形
func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}

func nonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
