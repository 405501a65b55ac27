// Package remove реализует HTTP-обработчик для мягкого удаления заявки владельцем.
package remove

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

// Handler обрабатывает HTTP-запросы на удаление заявки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс удаления заявки.
type Service interface {
	SoftDelete(ctx context.Context, session models.Session, formID string) error
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить заявку
// @Description Мягкое удаление. Повторное удаление безопасно.
// @Tags Forms
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID заявки"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Заявка принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Router /forms/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.remove"
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
	if err := h.service.SoftDelete(r.Context(), session, id); err != nil {
		log.Error("failed to delete form", slog.String("form_id", id), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("form deleted", slog.String("form_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"deleted_id": id}))
}
