package usecase

import (
	"time"

	"github.com/google/uuid"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 入力構造体の検証（validateタグ）
type InputValidator interface {
	Validate(i interface{}) error
}

type UUIDGenerator struct{}

func (g UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type SystemClock struct{}

func (c SystemClock) Now() time.Time {
	return time.Now()
}
