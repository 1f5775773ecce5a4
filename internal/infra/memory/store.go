// Package memory はプロセス内で完結するストア。
// STORE_DRIVER=memory での起動とテストで使う。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"todoapp/internal/domain/model"
	repo "todoapp/internal/repository"
)

// Store はユーザーとTODOを1つのロックで守る。
type Store struct {
	mu    sync.RWMutex
	users map[string]model.User
	todos map[string]model.Todo
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: map[string]model.User{},
		todos: map[string]model.Todo{},
		now:   time.Now,
	}
}

func (s *Store) Users() repo.UserRepository {
	return &userRepository{s: s}
}

func (s *Store) Todos() repo.TodoRepository {
	return &todoRepository{s: s}
}

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repo.ErrDuplicateEmail
		}
	}

	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// 登録順
func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, userID string, role model.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = r.s.now()
	r.s.users[userID] = u
	return nil
}

type todoRepository struct {
	s *Store
}

func inScope(t model.Todo, scope repo.TodoScope) bool {
	return scope.OwnerID == "" || t.UserID == scope.OwnerID
}

// ロック取得済みで呼ぶ
func (r *todoRepository) withOwner(t model.Todo) model.Todo {
	if u, ok := r.s.users[t.UserID]; ok {
		t.Owner = &u
	}
	return t
}

func (r *todoRepository) Create(ctx context.Context, todo *model.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = r.s.now()
	}
	stored := *todo
	stored.Owner = nil
	r.s.todos[todo.ID] = stored
	return nil
}

func (r *todoRepository) List(ctx context.Context, scope repo.TodoScope) ([]model.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Todo, 0)
	for _, t := range r.s.todos {
		if inScope(t, scope) {
			out = append(out, r.withOwner(t))
		}
	}

	//新しい順
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *todoRepository) Find(ctx context.Context, id string, scope repo.TodoScope) (*model.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.todos[id]
	if !ok || !inScope(t, scope) {
		return nil, nil
	}
	t = r.withOwner(t)
	return &t, nil
}

func (r *todoRepository) Update(ctx context.Context, todo *model.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.todos[todo.ID]
	if !ok {
		return repo.ErrNotFound
	}
	t.Text = todo.Text
	t.Completed = todo.Completed
	r.s.todos[todo.ID] = t
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, id string, scope repo.TodoScope) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.todos[id]
	if !ok || !inScope(t, scope) {
		return 0, nil
	}
	delete(r.s.todos, id)
	return 1, nil
}
