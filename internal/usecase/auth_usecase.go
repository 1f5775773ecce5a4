package usecase

import (
	"context"
	"errors"
	"fmt"

	"todoapp/internal/authz"
	"todoapp/internal/domain/model"
	"todoapp/internal/repository"
	"todoapp/internal/security"
)

type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangeRoleInput struct {
	Email   string `json:"email" validate:"required"`
	NewRole string `json:"newRole" validate:"required"`
}

// register / login のレスポンス
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AuthUsecase struct {
	users     repository.UserRepository
	roles     *authz.Table
	hasher    security.PasswordHasher
	verifier  security.PasswordVerifier
	issuer    security.TokenIssuer
	validator InputValidator
	idGen     IDGenerator
	clock     Clock
}

// DI
func NewAuthUsecase(
	users repository.UserRepository,
	roles *authz.Table,
	hasher security.PasswordHasher,
	verifier security.PasswordVerifier,
	issuer security.TokenIssuer,
	validator InputValidator,
	idGen IDGenerator,
	clock Clock,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		roles:     roles,
		hasher:    hasher,
		verifier:  verifier,
		issuer:    issuer,
		validator: validator,
		idGen:     idGen,
		clock:     clock,
	}
}

// 会員登録
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	if err := u.validator.Validate(in); err != nil {
		return nil, validationError(MsgRegisterMissing)
	}

	// email重複チェック
	existing, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, internal("find user by email", err)
	}
	if existing != nil {
		return nil, conflict(MsgUserExists)
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	user := &model.User{
		ID:           u.idGen.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         model.RoleUser, // 初期はuser
	}

	// 同時登録はunique制約で弾かれる
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, conflict(MsgUserExists)
		}
		return nil, internal("create user", err)
	}

	return u.authResponse(user)
}

// ログイン
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	if err := u.validator.Validate(in); err != nil {
		return nil, validationError(MsgMissingParams)
	}

	user, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, internal("find user by email", err)
	}
	if user == nil {
		return nil, validationError(MsgUserNotFound)
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return nil, validationError(MsgInvalidPassword)
	}

	return u.authResponse(user)
}

// 全ユーザー（passwordは返さない）
func (u *AuthUsecase) ListUsers(ctx context.Context) ([]UserDTO, error) {
	users, err := u.users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}

	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, ToUserDTO(&users[i]))
	}
	return out, nil
}

// ChangeRole はcallerの権限の範囲でtargetのロールを変更する。
func (u *AuthUsecase) ChangeRole(ctx context.Context, caller *model.User, in ChangeRoleInput) (*MessageResponse, error) {
	if err := u.validator.Validate(in); err != nil {
		return nil, validationError(MsgMissingParams)
	}

	//ロール名はDBを見る前に確認
	newRole := model.Role(in.NewRole)
	if err := u.roles.ValidateAssignable(newRole); err != nil {
		return nil, validationError(MsgInvalidRole)
	}

	target, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, internal("find target user", err)
	}
	if target == nil {
		return nil, notFound(MsgTargetNotFound)
	}

	if err := u.roles.CheckRoleChange(caller.Role, target.Role, newRole); err != nil {
		switch {
		case errors.Is(err, authz.ErrTargetAboveCaller):
			return nil, forbidden(MsgTargetAbove)
		case errors.Is(err, authz.ErrAssignAboveCaller):
			return nil, forbidden(MsgAssignAbove)
		default:
			return nil, internal("check role change", err)
		}
	}

	if err := u.users.UpdateRole(ctx, target.ID, newRole); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(MsgTargetNotFound)
		}
		return nil, internal("update role", err)
	}

	return &MessageResponse{
		Message: fmt.Sprintf("Role changed to %s for %s", newRole, in.Email),
	}, nil
}

// SetRole は運用コマンド用。階層チェックはしない。
func (u *AuthUsecase) SetRole(ctx context.Context, email string, role model.Role) (*UserDTO, error) {
	if !role.Valid() {
		return nil, validationError(MsgInvalidRole)
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal("find user by email", err)
	}
	if user == nil {
		return nil, notFound(MsgUserNotFound)
	}

	if err := u.users.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, internal("update role", err)
	}

	user.Role = role
	dto := ToUserDTO(user)
	return &dto, nil
}

// JWT発行してレスポンスにする
func (u *AuthUsecase) authResponse(user *model.User) (*AuthResponse, error) {
	token, err := u.issuer.Issue(user.ID, user.Email, u.clock.Now())
	if err != nil {
		return nil, internal("issue token", err)
	}
	return &AuthResponse{
		Token: token,
		User:  ToUserDTO(user),
	}, nil
}

// model.UserをAPI返却用DTOに変換。
func ToUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:    u.ID,
		Email: u.Email,
		Role:  string(u.Role),
		Name:  u.Name,
	}
}
