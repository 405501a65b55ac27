// Package proof реализует HTTP-обработчик, отдающий изображение подтверждения оплаты.
package proof

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/proofstore"
)

// Handler отдаёт изображение.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service загружает изображение по запросу.
type Service interface {
	Proof(ctx context.Context, session models.Session, notificationID string) (proofstore.Blob, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Изображение подтверждения оплаты
// @Tags PaymentRequests
// @Produce  image/png
// @Produce  image/jpeg
// @Security BearerAuth
// @Param id path string true "ID запроса"
// @Success 200 {file} file
// @Failure 403 {object} response.ErrorResponse "Только для администраторов"
// @Failure 404 {object} response.ErrorResponse "Запрос или изображение не найдены"
// @Router /payment-requests/{id}/proof [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentrequests.proof"
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
	blob, err := h.service.Proof(r.Context(), session, id)
	if err != nil {
		log.Error("failed to load proof", slog.String("notification_id", id), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := w.Write(blob.Data); err != nil {
		log.Error("failed to write proof", sl.Err(err))
	}
}
