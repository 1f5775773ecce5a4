// Package authz はロール階層による認可判定をまとめる。
//
// 判定はすべて Table に対する純粋関数で、DBやHTTPには依存しない。
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"todoapp/internal/domain/model"

	"github.com/pelletier/go-toml/v2"
)

//go:embed roles.toml
var defaultTableTOML []byte

var (
	// 未知のロール、またはテーブルでランク付けされていないロール
	ErrInvalidRole = errors.New("invalid role")
	// 対象ユーザーが自分より上位
	ErrTargetAboveCaller = errors.New("target is above caller")
	// 付与しようとしたロールが自分より上位
	ErrAssignAboveCaller = errors.New("new role is above caller")
)

// roles.toml の形
type tableFile struct {
	Elevated   []string       `toml:"elevated"`
	UserAdmins []string       `toml:"user_admins"`
	Dashboard  []string       `toml:"dashboard"`
	Levels     map[string]int `toml:"levels"`
}

type roleSet map[model.Role]struct{}

func newRoleSet(names []string) roleSet {
	s := make(roleSet, len(names))
	for _, n := range names {
		s[model.Role(n)] = struct{}{}
	}
	return s
}

func (s roleSet) has(r model.Role) bool {
	_, ok := s[r]
	return ok
}

// Table はロール階層テーブル。起動後は読み取り専用。
type Table struct {
	levels     map[model.Role]int
	elevated   roleSet
	userAdmins roleSet
	dashboard  roleSet
}

// Parse はTOMLからテーブルを作る。
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode role table: %w", err)
	}
	if len(f.Levels) == 0 {
		return nil, errors.New("role table: levels is required")
	}

	levels := make(map[model.Role]int, len(f.Levels))
	for name, lv := range f.Levels {
		if lv < 0 {
			return nil, fmt.Errorf("role table: level of %q must be >= 0", name)
		}
		levels[model.Role(name)] = lv
	}

	return &Table{
		levels:     levels,
		elevated:   newRoleSet(f.Elevated),
		userAdmins: newRoleSet(f.UserAdmins),
		dashboard:  newRoleSet(f.Dashboard),
	}, nil
}

// Load はpathのテーブルを読む。pathが空なら組み込みのテーブル。
func Load(path string) (*Table, error) {
	if path == "" {
		return Parse(defaultTableTOML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role table: %w", err)
	}
	return Parse(data)
}

// Default は組み込みのテーブル。
func Default() *Table {
	t, err := Parse(defaultTableTOML)
	if err != nil {
		panic(err)
	}
	return t
}

// Level はロールのランク。大文字小文字は区別する。
func (t *Table) Level(r model.Role) (int, bool) {
	lv, ok := t.levels[r]
	return lv, ok
}

// IsElevated は他人のTODOも扱えるロールか。
func (t *Table) IsElevated(r model.Role) bool {
	return t.elevated.has(r)
}

// CanManageUsers はロール変更・ユーザー一覧の許可リストに入っているか。
func (t *Table) CanManageUsers(r model.Role) bool {
	return t.userAdmins.has(r)
}

func (t *Table) CanViewDashboard(r model.Role) bool {
	return t.dashboard.has(r)
}

// TodoOwnerScope はTODO操作の対象オーナーを決める。
// 戻り値が空なら全ユーザーが対象。
func (t *Table) TodoOwnerScope(caller *model.User, requestedOwner string) string {
	if t.IsElevated(caller.Role) {
		return requestedOwner
	}
	return caller.ID
}

// ValidateAssignable は付与できるロール名かを確認する。
// 保存可能なロールで、かつテーブルにランクがあること。
func (t *Table) ValidateAssignable(r model.Role) error {
	if !r.Valid() {
		return ErrInvalidRole
	}
	if _, ok := t.Level(r); !ok {
		return ErrInvalidRole
	}
	return nil
}

// CheckRoleChange はcallerがtargetのロールをnewRoleに変えてよいか判定する。
// 同じランクは許可（<=）。自分自身も対象にできる。
func (t *Table) CheckRoleChange(caller, target, newRole model.Role) error {
	if t.outranks(target, caller) {
		return ErrTargetAboveCaller
	}
	if t.outranks(newRole, caller) {
		return ErrAssignAboveCaller
	}
	return nil
}

// aがbより上位か。どちらかがランク外なら比較できないので false。
func (t *Table) outranks(a, b model.Role) bool {
	la, okA := t.Level(a)
	lb, okB := t.Level(b)
	return okA && okB && la > lb
}
