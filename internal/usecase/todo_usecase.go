package usecase

import (
	"context"
	"strings"
	"time"

	"todoapp/internal/authz"
	"todoapp/internal/domain/model"
	"todoapp/internal/repository"

	"github.com/google/uuid"
)

type TodoOwnerDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type TodoDTO struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Completed bool         `json:"completed"`
	User      TodoOwnerDTO `json:"user"`
	CreatedAt time.Time    `json:"createdAt"`
}

type CreateTodoInput struct {
	Text string `json:"text" validate:"nonblank"`
}

// 指定されたものだけ更新する
type UpdateTodoInput struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

type TodoResponse struct {
	Message string  `json:"message"`
	Todo    TodoDTO `json:"todo"`
}

type TodoListResponse struct {
	Todos []TodoDTO `json:"todos"`
}

type TodoUsecase struct {
	todos     repository.TodoRepository
	users     repository.UserRepository
	roles     *authz.Table
	validator InputValidator
	idGen     IDGenerator
	clock     Clock
}

// DI
func NewTodoUsecase(
	todos repository.TodoRepository,
	users repository.UserRepository,
	roles *authz.Table,
	validator InputValidator,
	idGen IDGenerator,
	clock Clock,
) *TodoUsecase {
	return &TodoUsecase{
		todos:     todos,
		users:     users,
		roles:     roles,
		validator: validator,
		idGen:     idGen,
		clock:     clock,
	}
}

// TODO作成。作成者がオーナー
func (u *TodoUsecase) Create(ctx context.Context, caller *model.User, in CreateTodoInput) (*TodoResponse, error) {
	if err := u.validator.Validate(in); err != nil {
		return nil, validationError(MsgTodoTextRequired)
	}

	todo := &model.Todo{
		ID:        u.idGen.NewID(),
		Text:      strings.TrimSpace(in.Text),
		Completed: false,
		UserID:    caller.ID,
		CreatedAt: u.clock.Now(),
	}
	if err := u.todos.Create(ctx, todo); err != nil {
		return nil, internal("create todo", err)
	}
	todo.Owner = caller

	return &TodoResponse{
		Message: "Todo created successfully",
		Todo:    toTodoDTO(todo),
	}, nil
}

// List はcallerが見られる範囲のTODOを新しい順に返す。
// 昇格ロールはuserIDで絞り込める（空なら全件）。
func (u *TodoUsecase) List(ctx context.Context, caller *model.User, userID string) (*TodoListResponse, error) {
	owner := u.roles.TodoOwnerScope(caller, userID)

	//他人を指定したときは存在確認
	if owner != "" && owner != caller.ID {
		if _, err := uuid.Parse(owner); err != nil {
			return nil, notFound(MsgTodoOwnerMissing)
		}
		target, err := u.users.FindByID(ctx, owner)
		if err != nil {
			return nil, internal("find target user", err)
		}
		if target == nil {
			return nil, notFound(MsgTodoOwnerMissing)
		}
	}

	list, err := u.todos.List(ctx, repository.TodoScope{OwnerID: owner})
	if err != nil {
		return nil, internal("list todos", err)
	}

	out := make([]TodoDTO, 0, len(list))
	for i := range list {
		out = append(out, toTodoDTO(&list[i]))
	}
	return &TodoListResponse{Todos: out}, nil
}

// Update は範囲内のTODOのtext / completedを更新する。
// 範囲外は存在しないのと同じ404。
func (u *TodoUsecase) Update(ctx context.Context, caller *model.User, todoID string, in UpdateTodoInput) (*TodoResponse, error) {
	if in.Text != nil && strings.TrimSpace(*in.Text) == "" {
		return nil, validationError(MsgTodoTextRequired)
	}

	todo, err := u.findScoped(ctx, caller, todoID)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, notFound(MsgTodoUpdate404)
	}

	if in.Text != nil {
		todo.Text = strings.TrimSpace(*in.Text)
	}
	if in.Completed != nil {
		todo.Completed = *in.Completed
	}

	if err := u.todos.Update(ctx, todo); err != nil {
		if err == repository.ErrNotFound {
			return nil, notFound(MsgTodoUpdate404)
		}
		return nil, internal("update todo", err)
	}

	return &TodoResponse{
		Message: "Todo updated successfully",
		Todo:    toTodoDTO(todo),
	}, nil
}

// Delete は範囲内のTODOを削除する。
func (u *TodoUsecase) Delete(ctx context.Context, caller *model.User, todoID string) (*MessageResponse, error) {
	if _, err := uuid.Parse(todoID); err != nil {
		return nil, notFound(MsgTodoDelete404)
	}

	scope := repository.TodoScope{OwnerID: u.roles.TodoOwnerScope(caller, "")}
	n, err := u.todos.Delete(ctx, todoID, scope)
	if err != nil {
		return nil, internal("delete todo", err)
	}
	if n == 0 {
		return nil, notFound(MsgTodoDelete404)
	}

	return &MessageResponse{Message: "Todo deleted successfully"}, nil
}

// 範囲内のTODOを1件。なければ nil
func (u *TodoUsecase) findScoped(ctx context.Context, caller *model.User, todoID string) (*model.Todo, error) {
	if _, err := uuid.Parse(todoID); err != nil {
		return nil, nil
	}

	scope := repository.TodoScope{OwnerID: u.roles.TodoOwnerScope(caller, "")}
	todo, err := u.todos.Find(ctx, todoID, scope)
	if err != nil {
		return nil, internal("find todo", err)
	}
	return todo, nil
}

func toTodoDTO(t *model.Todo) TodoDTO {
	dto := TodoDTO{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		User:      TodoOwnerDTO{ID: t.UserID},
		CreatedAt: t.CreatedAt,
	}
	if t.Owner != nil {
		dto.User.Email = t.Owner.Email
	}
	return dto
}
