package models

import "time"

// AdminNotification: загруженное подтверждение оплаты, ожидающее решения администратора.
// Handled: конечный признак, после установки не сбрасывается.
type AdminNotification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	UserName  string     `json:"user_name"`
	UserEmail string     `json:"user_email"`
	UserRole  Role       `json:"user_role"`
	Plan      Plan       `json:"plan"`
	ProofKey  string     `json:"proof_key"`
	CreatedAt time.Time  `json:"created_at"`
	Handled   bool       `json:"handled"`
	HandledAt *time.Time `json:"handled_at,omitempty"`
	HandledBy string     `json:"handled_by,omitempty"`
	Approved  *bool      `json:"approved,omitempty"`
	Version   int        `json:"-"`
}
