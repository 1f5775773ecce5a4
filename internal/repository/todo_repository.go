package repository

import (
	"todoapp/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// TODOの絞り込み条件。
// OwnerIDが空なら全ユーザーのTODOが対象。
type TodoScope struct {
	OwnerID string
}

// TODOの永続化（保存・取得）だけを約束。
type TodoRepository interface {
	Create(ctx context.Context, todo *model.Todo) error

	//新しい順。Ownerもロードする
	List(ctx context.Context, scope TodoScope) ([]model.Todo, error)

	//scope内で1件取得。なければ nil, nil
	Find(ctx context.Context, id string, scope TodoScope) (*model.Todo, error)

	//text / completed を更新
	Update(ctx context.Context, todo *model.Todo) error

	//scope内で削除。削除件数を返す
	Delete(ctx context.Context, id string, scope TodoScope) (int64, error)
}
