// Package create реализует HTTP-обработчик для создания заявки на аудит.
//
// Handler принимает JSON с данными заявки, валидирует их, берёт сессию из контекста
// и вызывает сервис заявок. Создание списывает запись подписки фирмы или администратора.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// DateLayout: формат ожидаемой даты аудита в запросах.
const DateLayout = "2006-01-02"

// Request: данные новой заявки.
type Request struct {
	Location        string          `json:"location" validate:"required,max=500"`
	ExpectedDate    string          `json:"expected_date" validate:"required"`
	AdminCodes      []string        `json:"admin_codes" validate:"required,min=1"`
	Fees            models.FeeRange `json:"fees"`
	PaymentTerm     string          `json:"payment_term" validate:"max=500"`
	PaymentReminder bool            `json:"payment_reminder"`
}

// Handler управляет HTTP-запросами на создание заявок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания заявки.
type Service interface {
	CreateForm(ctx context.Context, session models.Session, fields models.FormFields) (models.Form, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать заявку
// @Description Фирма или администратор публикует заявку. Расходует одну запись подписки.
// @Tags Forms
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные заявки"
// @Success 201 {object} response.Response "Заявка создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Студенты не создают заявки"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или исчерпан лимит"
// @Router /forms [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, ok := middlewarectx.SessionFrom(r.Context())
	if !ok {
		log.Error("session not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	expected, err := time.Parse(DateLayout, req.ExpectedDate)
	if err != nil {
		log.Error("invalid expected date", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("expected_date must be in format 2006-01-02"))
		return
	}

	form, err := h.service.CreateForm(r.Context(), session, models.FormFields{
		Location:        req.Location,
		ExpectedDate:    expected,
		AdminCodes:      req.AdminCodes,
		Fees:            req.Fees,
		PaymentTerm:     req.PaymentTerm,
		PaymentReminder: req.PaymentReminder,
	})
	if err != nil {
		log.Error("failed to create form", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("form created", slog.String("form_id", form.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(form))
}
