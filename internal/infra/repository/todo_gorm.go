package repository

import (
	"context"
	"errors"

	"todoapp/internal/domain/model"
	repo "todoapp/internal/repository"

	"gorm.io/gorm"
)

type todoGormRepository struct {
	db *gorm.DB
}

// DI
func NewTodoGormRepository(db *gorm.DB) repo.TodoRepository {
	return &todoGormRepository{db: db}
}

// scopeのオーナー条件を付ける
func scoped(tx *gorm.DB, scope repo.TodoScope) *gorm.DB {
	if scope.OwnerID != "" {
		tx = tx.Where("user_id = ?", scope.OwnerID)
	}
	return tx
}

func (r *todoGormRepository) Create(ctx context.Context, todo *model.Todo) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(todo).Error
}

// 新しい順
func (r *todoGormRepository) List(ctx context.Context, scope repo.TodoScope) ([]model.Todo, error) {
	var todos []model.Todo

	tx := scoped(r.db.WithContext(ctx).Model(&model.Todo{}), scope)
	if err := tx.Preload("Owner").
		Order("created_at DESC").Order("id DESC").
		Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

func (r *todoGormRepository) Find(ctx context.Context, id string, scope repo.TodoScope) (*model.Todo, error) {
	var t model.Todo

	tx := scoped(r.db.WithContext(ctx).Where("id = ?", id), scope)
	if err := tx.Preload("Owner").First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// text / completed だけ更新（created_atは触らない）
func (r *todoGormRepository) Update(ctx context.Context, todo *model.Todo) error {
	res := r.db.WithContext(ctx).
		Model(&model.Todo{}).
		Where("id = ?", todo.ID).
		Updates(map[string]interface{}{
			"text":      todo.Text,
			"completed": todo.Completed,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *todoGormRepository) Delete(ctx context.Context, id string, scope repo.TodoScope) (int64, error) {
	res := scoped(r.db.WithContext(ctx).Where("id = ?", id), scope).Delete(&model.Todo{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
