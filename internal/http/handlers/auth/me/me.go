// Package me реализует HTTP-обработчик профиля текущего пользователя.
package me

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
	notifservice "github.com/magabrotheeeer/audit-coordinator/internal/services/notification"
)

// Handler возвращает сводку пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service собирает сводку по сессии.
type Service interface {
	Dashboard(ctx context.Context, session models.Session) (notifservice.Dashboard, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль и сводка
// @Description Пользователь, подписка, непрочитанные уведомления, число напоминаний и открытых запросов.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"
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

	d, err := h.service.Dashboard(r.Context(), session)
	if err != nil {
		log.Error("failed to build dashboard", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(d))
}
