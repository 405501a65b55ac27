// Package list реализует HTTP-обработчик ленты уведомлений пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Handler отдаёт ленту уведомлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service возвращает уведомления, новые первыми.
type Service interface {
	Notifications(ctx context.Context, session models.Session) ([]models.Notification, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Уведомления
// @Tags Notifications
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /notifications [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notifications.list"
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

	list, err := h.service.Notifications(r.Context(), session)
	if err != nil {
		log.Error("failed to load notifications", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	render.JSON(w, r, response.StatusOKWithData(list))
}
