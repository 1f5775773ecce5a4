package model

import "time"

// ユーザーのTODO。作成者がUserIDになる。
type Todo struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Text      string `gorm:"type:text;not null" json:"text"`
	Completed bool   `gorm:"not null;default:false" json:"completed"`
	UserID    string `gorm:"type:uuid;not null;index" json:"userId"`

	//一覧・更新レスポンスでemailを返すため
	Owner *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	//作成時のみセット
	CreatedAt time.Time `gorm:"not null;index;autoCreateTime;<-:create" json:"createdAt"`
}
