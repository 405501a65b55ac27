package models

import (
	"slices"
	"time"
)

// FeeRange: диапазон вознаграждения за аудит.
type FeeRange struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gtefield=From"`
}

// StudentSubmission: отклик студента на заявку.
type StudentSubmission struct {
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	Phone        string    `json:"phone"`
	Notes        string    `json:"notes,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Form: заявка на проведение аудита, созданная фирмой.
type Form struct {
	ID                string             `json:"id"`
	CreatedByUserID   string             `json:"created_by_user_id"`
	Location          string             `json:"location"`
	ExpectedDate      time.Time          `json:"expected_date"`
	AdminCodes        []string           `json:"admin_codes,omitempty"`
	Fees              FeeRange           `json:"fees"`
	AdminFees         *FeeRange          `json:"admin_fees,omitempty"`
	PaymentTerm       string             `json:"payment_term"`
	PaymentReminder   bool               `json:"payment_reminder"`
	ReminderNotified  bool               `json:"reminder_notified"`
	IsApproved        bool               `json:"is_approved"`
	EntryCounted      bool               `json:"entry_counted"`
	Deleted           bool               `json:"deleted"`
	DeletedCounted    bool               `json:"deleted_counted"`
	StudentSubmission *StudentSubmission `json:"student_submission,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Version           int                `json:"-"`
}

// Locked сообщает, заблокированы ли поля администратора откликом студента.
func (f Form) Locked() bool {
	return f.StudentSubmission != nil
}

// Available сообщает, может ли студент откликнуться на заявку.
func (f Form) Available() bool {
	return !f.Deleted && f.IsApproved && f.StudentSubmission == nil
}

// MatchesAdminCode сообщает, видна ли заявка администратору с данным кодом.
func (f Form) MatchesAdminCode(code string) bool {
	code = NormalizeAdminCode(code)
	if code == "" {
		return false
	}
	return slices.ContainsFunc(f.AdminCodes, func(c string) bool {
		return NormalizeAdminCode(c) == code
	})
}

// Clone возвращает глубокую копию заявки.
func (f Form) Clone() Form {
	f.AdminCodes = slices.Clone(f.AdminCodes)
	if f.AdminFees != nil {
		fees := *f.AdminFees
		f.AdminFees = &fees
	}
	if f.StudentSubmission != nil {
		sub := *f.StudentSubmission
		f.StudentSubmission = &sub
	}
	return f
}

// FormFields: поля, которые фирма указывает при создании заявки.
type FormFields struct {
	Location        string
	ExpectedDate    time.Time
	AdminCodes      []string
	Fees            FeeRange
	PaymentTerm     string
	PaymentReminder bool
}

// AdminFields: поля, которые администратор может изменить до отклика студента.
type AdminFields struct {
	Fees  *FeeRange
	Terms *string
}

// SubmissionDetails: данные, которые студент указывает при отклике.
type SubmissionDetails struct {
	Phone string
	Notes string
}

// StudentForms: представление заявок для студента.
type StudentForms struct {
	Available []Form `json:"available"`
	MyReports []Form `json:"my_reports"`
}
