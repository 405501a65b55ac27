// Package update реализует HTTP-обработчик: Изменение полей заявки администратором.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Request: поля администратора. Отсутствующее поле не меняется.
type Request struct {
	Fees  *models.FeeRange `json:"fees,omitempty"`
	Terms *string          `json:"terms,omitempty" validate:"omitempty,max=500"`
}

// Handler обрабатывает запросы администратора к заявке.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает операцию администратора над заявкой.
type Service interface {
	AdminUpdateFields(ctx context.Context, session models.Session, formID string, fields models.AdminFields) (models.Form, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменение полей заявки администратором
// @Tags Forms
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Param request body Request false "Вознаграждение и условия оплаты"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Код администратора не совпадает"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Заявка заблокирована откликом студента"
// @Router /forms/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.update"
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
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
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

	id := chi.URLParam(r, "id")
	form, err := h.service.AdminUpdateFields(r.Context(), session, id, models.AdminFields{
		Fees:  req.Fees,
		Terms: req.Terms,
	})
	if err != nil {
		log.Error("admin update failed", slog.String("form_id", id), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("admin update done", slog.String("form_id", id))
	render.JSON(w, r, response.StatusOKWithData(form))
}
