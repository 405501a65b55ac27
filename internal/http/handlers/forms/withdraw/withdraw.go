// Package withdraw реализует HTTP-обработчик отзыва отклика студентом.
package withdraw

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

// Handler обрабатывает отзыв отклика.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает отзыв отклика.
type Service interface {
	StudentWithdraw(ctx context.Context, session models.Session, formID string) (models.Form, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отзыв отклика
// @Description Возможен только до ожидаемой даты аудита включительно.
// @Tags Forms
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Отклик принадлежит другому студенту"
// @Failure 409 {object} response.ErrorResponse "Дата аудита прошла"
// @Router /forms/{id}/submission [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.withdraw"
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
	form, err := h.service.StudentWithdraw(r.Context(), session, id)
	if err != nil {
		log.Error("withdrawal failed", slog.String("form_id", id), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("submission withdrawn", slog.String("form_id", id))
	render.JSON(w, r, response.StatusOKWithData(form))
}
