// Package list реализует HTTP-обработчик открытых запросов на активацию плана.
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

// Handler отдаёт необработанные запросы администраторам.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает выборку открытых запросов.
type Service interface {
	OpenPaymentRequests(ctx context.Context, session models.Session) ([]models.AdminNotification, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Открытые запросы на оплату
// @Tags PaymentRequests
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Только для администраторов"
// @Router /payment-requests [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentrequests.list"
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

	list, err := h.service.OpenPaymentRequests(r.Context(), session)
	if err != nil {
		log.Error("failed to list payment requests", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	if list == nil {
		list = []models.AdminNotification{}
	}
	render.JSON(w, r, response.StatusOKWithData(list))
}
