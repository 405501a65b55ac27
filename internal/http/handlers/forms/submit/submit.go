// Package submit реализует HTTP-обработчик отклика студента на заявку.
package submit

import (
	"context"
	"encoding/json"
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

// Request: контакты студента.
type Request struct {
	Phone string `json:"phone" validate:"required,max=50"`
	Notes string `json:"notes" validate:"max=2000"`
}

// Handler обрабатывает отклик студента.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает отклик на заявку.
type Service interface {
	StudentSubmit(ctx context.Context, session models.Session, formID string, details models.SubmissionDetails) (models.Form, error)
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
// @Summary Отклик студента
// @Description Студент берёт одобренную заявку. Поля администратора блокируются до отзыва отклика.
// @Tags Forms
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Param request body Request true "Контакты студента"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Заявка не одобрена или уже занята"
// @Router /forms/{id}/submission [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.submit"
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

	id := chi.URLParam(r, "id")
	form, err := h.service.StudentSubmit(r.Context(), session, id, models.SubmissionDetails{
		Phone: req.Phone,
		Notes: req.Notes,
	})
	if err != nil {
		log.Error("submission failed", slog.String("form_id", id), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("submission accepted", slog.String("form_id", id))
	render.JSON(w, r, response.StatusOKWithData(form))
}
