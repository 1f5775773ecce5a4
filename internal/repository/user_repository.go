package repository

import (
	"todoapp/internal/domain/model"
	"context"
	"errors"
)

// email重複（unique制約違反）を統一
var ErrDuplicateEmail = errors.New("duplicate email")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。見つからなければ nil, nil
	FindByID(ctx context.Context, userID string) (*model.User, error)
	//メールからユーザーを一件取得する。見つからなければ nil, nil
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//全ユーザー
	List(ctx context.Context) ([]model.User, error)
	// ロールだけを更新
	UpdateRole(ctx context.Context, userID string, role model.Role) error
}
