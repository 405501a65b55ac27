package models

import (
	"errors"
	"fmt"
)

// Ошибки доменного уровня. Обработчики HTTP сопоставляют их со статусами ответа.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateAccount   = errors.New("account with this email and role already exists")
	ErrConflict           = errors.New("record was modified concurrently")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email is not verified")
	ErrInvalidCode        = errors.New("invalid or expired verification code")

	ErrFormLocked       = errors.New("form is locked by a student submission")
	ErrNotApproved      = errors.New("form is not approved")
	ErrAlreadySubmitted = errors.New("form already has a submission")
	ErrNoSubmission     = errors.New("form has no submission")
	ErrWithdrawalClosed = errors.New("withdrawal is not possible after the expected date")

	ErrProofRequired  = errors.New("payment proof image is required")
	ErrPlanPending    = errors.New("plan activation is already pending")
	ErrAlreadyHandled = errors.New("payment request is already handled")
	ErrOwnRequest     = errors.New("admins cannot decide their own payment request")
)

// QuotaError возвращается, когда лимит записей подписки исчерпан.
type QuotaError struct {
	Limit int
	Used  int
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("entry quota exceeded: %d of %d used", e.Used, e.Limit)
}

// Is позволяет сопоставлять QuotaError с ErrValidation.
func (e QuotaError) Is(target error) bool {
	return target == ErrValidation
}
