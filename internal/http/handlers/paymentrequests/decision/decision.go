// Package decision реализует HTTP-обработчик решения администратора по запросу на оплату.
package decision

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

// Request: решение администратора. Указатель нужен, чтобы отличить false от отсутствия поля.
type Request struct {
	Approve *bool `json:"approve" validate:"required"`
}

// Handler обрабатывает решение.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service применяет решение.
type Service interface {
	DecidePlanActivation(ctx context.Context, session models.Session, notificationID string, approve bool) (models.AdminNotification, error)
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
// @Summary Решение по запросу на оплату
// @Description Одобрение активирует безлимитный план на срок плана, отказ возвращает подписку в inactive.
// @Tags PaymentRequests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "ID запроса"
// @Param request body Request true "Решение"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Только для администраторов или собственный запрос"
// @Failure 404 {object} response.ErrorResponse "Запрос не найден"
// @Failure 409 {object} response.ErrorResponse "Запрос уже обработан"
// @Router /payment-requests/{id}/decision [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentrequests.decision"
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
	note, err := h.service.DecidePlanActivation(r.Context(), session, id, *req.Approve)
	if err != nil {
		log.Error("decision failed", slog.String("notification_id", id), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("payment request decided", slog.String("notification_id", id), slog.Bool("approved", *req.Approve))
	render.JSON(w, r, response.StatusOKWithData(note))
}
