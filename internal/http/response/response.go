// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "numeric", "len":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a %s-digit code", err.Field(), err.Param()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "datetime":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only date in format 2006-01-02", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// statusByError задаёт HTTP-статус для доменных ошибок. Порядок важен:
// проверяется первая подходящая запись.
var statusByError = []struct {
	err    error
	status int
}{
	{models.ErrPasswordMismatch, http.StatusBadRequest},
	{models.ErrInvalidCode, http.StatusBadRequest},
	{models.ErrProofRequired, http.StatusUnprocessableEntity},
	{models.ErrValidation, http.StatusUnprocessableEntity},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrEmailNotVerified, http.StatusForbidden},
	{models.ErrForbidden, http.StatusForbidden},
	{models.ErrOwnRequest, http.StatusForbidden},
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrDuplicateAccount, http.StatusConflict},
	{models.ErrConflict, http.StatusConflict},
	{models.ErrAlreadyHandled, http.StatusConflict},
	{models.ErrPlanPending, http.StatusConflict},
	{models.ErrFormLocked, http.StatusConflict},
	{models.ErrNotApproved, http.StatusConflict},
	{models.ErrAlreadySubmitted, http.StatusConflict},
	{models.ErrNoSubmission, http.StatusConflict},
	{models.ErrWithdrawalClosed, http.StatusConflict},
}

// FromError возвращает HTTP-статус и текст ответа для ошибки сервиса.
// Неизвестные ошибки превращаются в 500 без подробностей.
func FromError(err error) (int, string) {
	var quota models.QuotaError
	if errors.As(err, &quota) {
		return http.StatusUnprocessableEntity, quota.Error()
	}
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status, publicMessage(err, e.err)
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// publicMessage отрезает от текста ошибки префиксы операций:
// клиент видит сообщение начиная с текста доменной ошибки.
func publicMessage(err, sentinel error) string {
	full, msg := err.Error(), sentinel.Error()
	if i := strings.Index(full, msg); i >= 0 {
		return full[i:]
	}
	return msg
}

// WriteError пишет ответ с ошибкой сервиса.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := FromError(err)
	w.WriteHeader(status)
	render.JSON(w, r, Error(msg))
}
