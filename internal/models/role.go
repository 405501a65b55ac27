package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role — роль учётной записи. Назначается при регистрации и больше не меняется.
type Role uint8

const (
	roleUnknown Role = iota
	// RoleFirm — аудиторская фирма, публикует заявки.
	RoleFirm
	// RoleStudent — студент, откликается на одобренные заявки.
	RoleStudent
	// RoleAdmin — администратор, одобряет заявки и платежи.
	RoleAdmin
)

// ParseRole разбирает строковое представление роли (FIRM, STUDENT, ADMIN) без учёта регистра.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIRM":
		return RoleFirm, nil
	case "STUDENT":
		return RoleStudent, nil
	case "ADMIN":
		return RoleAdmin, nil
	}
	return roleUnknown, fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// SwitchRole выполняет ровно одну из веток в зависимости от роли.
//
// Каждая роль — отдельный аргумент: добавление новой роли меняет сигнатуру,
// и все места диспетчеризации перестают компилироваться.
func SwitchRole[T any](r Role, firm, student, admin func() T) T {
	switch r {
	case RoleFirm:
		return firm()
	case RoleStudent:
		return student()
	case RoleAdmin:
		return admin()
	}
	panic(fmt.Sprintf("models: invalid role %d", r))
}

// Valid сообщает, является ли значение одной из известных ролей.
func (r Role) Valid() bool {
	return r == RoleFirm || r == RoleStudent || r == RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleFirm:
		return "FIRM"
	case RoleStudent:
		return "STUDENT"
	case RoleAdmin:
		return "ADMIN"
	}
	return "UNKNOWN"
}

// HasQuota сообщает, ведётся ли для роли учёт записей по подписке.
func (r Role) HasQuota() bool {
	return SwitchRole(r,
		func() bool { return true },
		func() bool { return false },
		func() bool { return true },
	)
}

// MarshalText реализует encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("models: invalid role %d", r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value реализует driver.Valuer для хранения роли строкой.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("models: invalid role %d", r)
	}
	return r.String(), nil
}

// Scan реализует sql.Scanner.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}
	return fmt.Errorf("models: cannot scan %T into Role", src)
}
