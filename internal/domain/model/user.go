package model

import "time"

type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
	RoleManager    Role = "manager"
)

// 保存できるロール（大文字小文字を区別する）
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin, RoleManager}

// ロールとして認識できる値かどうか
func (r Role) Valid() bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
