package models

import (
	"strings"
	"time"
)

// NotificationKind: тип пользовательского уведомления.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationInfo    NotificationKind = "info"
)

// Notification: сообщение в ленте пользователя.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
}

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"`
	Role          Role           `json:"role"`
	AdminCode     string         `json:"admin_code,omitempty"` // только для администраторов
	EmailVerified bool           `json:"email_verified"`
	Subscription  Subscription   `json:"subscription"`
	Notifications []Notification `json:"notifications"`
	CreatedAt     time.Time      `json:"created_at"`
	Version       int            `json:"-"`
}

// WithSubscription возвращает копию пользователя с новой подпиской.
func (u User) WithSubscription(s Subscription) User {
	u.Subscription = s
	return u
}

// WithNotification возвращает копию пользователя с добавленным уведомлением.
func (u User) WithNotification(n Notification) User {
	list := make([]Notification, 0, len(u.Notifications)+1)
	list = append(list, u.Notifications...)
	u.Notifications = append(list, n)
	return u
}

// WithNotificationsRead возвращает копию, в которой все уведомления прочитаны.
func (u User) WithNotificationsRead() User {
	list := make([]Notification, len(u.Notifications))
	for i, n := range u.Notifications {
		n.Read = true
		list[i] = n
	}
	u.Notifications = list
	return u
}

// Unread возвращает непрочитанные уведомления.
func (u User) Unread() []Notification {
	var out []Notification
	for _, n := range u.Notifications {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// NormalizeEmail приводит email к виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeAdminCode приводит код администратора к виду для сравнения.
func NormalizeAdminCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Session: явный контекст вызова: кто выполняет операцию.
type Session struct {
	UserID string
	Role   Role
}
