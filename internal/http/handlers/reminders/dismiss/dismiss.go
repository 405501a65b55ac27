// Package dismiss реализует HTTP-обработчик закрытия напоминания об оплате.
package dismiss

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Handler закрывает напоминание.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает закрытие напоминания.
type Service interface {
	DismissReminder(ctx context.Context, session models.Session, formID string) (models.Form, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Закрыть напоминание
// @Description Закрытое напоминание больше не показывается.
// @Tags Reminders
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Нет доступа к заявке"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Router /reminders/{id}/dismiss [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reminders.dismiss"
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

	id := chi.URLParam(r, "id")
	form, err := h.service.DismissReminder(r.Context(), session, id)
	if err != nil {
		log.Error("failed to dismiss reminder", slog.String("form_id", id), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(form))
}
