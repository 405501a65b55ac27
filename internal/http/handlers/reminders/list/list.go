// Package list реализует HTTP-обработчик наступивших напоминаний об оплате.
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

// Handler отдаёт заявки с наступившим напоминанием.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает выборку напоминаний.
type Service interface {
	DuePaymentReminders(ctx context.Context, session models.Session) ([]models.Form, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Напоминания об оплате
// @Tags Reminders
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /reminders [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reminders.list"
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

	forms, err := h.service.DuePaymentReminders(r.Context(), session)
	if err != nil {
		log.Error("failed to load reminders", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	if forms == nil {
		forms = []models.Form{}
	}
	render.JSON(w, r, response.StatusOKWithData(forms))
}
