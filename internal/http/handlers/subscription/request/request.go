// Package request реализует HTTP-обработчик запроса на активацию платного плана.
//
// Запрос — multipart/form-data с полем plan и изображением подтверждения оплаты в поле proof.
package request

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Handler принимает подтверждение оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	maxBytes int64
}

// Service описывает запрос активации плана.
type Service interface {
	RequestPlanActivation(ctx context.Context, session models.Session, plan models.Plan, proof []byte) (models.User, error)
}

// New создает новый Handler. maxBytes ограничивает размер загружаемого изображения.
func New(log *slog.Logger, service Service, maxBytes int64) *Handler {
	return &Handler{log: log, service: service, maxBytes: maxBytes}
}

// ServeHTTP godoc
// @Summary Запрос активации плана
// @Description Загружает изображение подтверждения оплаты. Подписка переходит в pending до решения администратора.
// @Tags Subscription
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param plan formData string true "monthly, six_month или yearly"
// @Param proof formData file true "Изображение подтверждения оплаты"
// @Success 202 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Студенты не оформляют подписку"
// @Failure 409 {object} response.ErrorResponse "Запрос уже ожидает решения"
// @Failure 413 {object} response.ErrorResponse "Файл слишком большой"
// @Failure 422 {object} response.ErrorResponse "Нет изображения или неизвестный план"
// @Router /subscription/requests [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.request"
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

	// запас на поля формы и заголовки частей
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			render.JSON(w, r, response.Error("proof image is too large"))
			return
		}
		log.Error("failed to parse multipart form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid multipart form"))
		return
	}

	plan, err := models.ParsePlan(r.FormValue("plan"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("plan must be one of: monthly, six_month, yearly"))
		return
	}

	var proof []byte
	file, _, err := r.FormFile("proof")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		log.Error("failed to open proof file", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid proof file"))
		return
	default:
		defer file.Close()
		if proof, err = io.ReadAll(file); err != nil {
			log.Error("failed to read proof file", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid proof file"))
			return
		}
	}

	user, err := h.service.RequestPlanActivation(r.Context(), session, plan, proof)
	if err != nil {
		log.Error("plan activation request failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("plan activation requested", slog.String("plan", string(plan)))
	w.WriteHeader(http.StatusAccepted)
	render.JSON(w, r, response.StatusOKWithData(user.Subscription))
}
