// Package verify реализует HTTP-обработчик подтверждения email кодом из письма.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Request: email, роль и шестизначный код.
type Request struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// Handler обрабатывает подтверждение email.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс подтверждения email.
type Service interface {
	VerifyEmail(ctx context.Context, email string, role models.Role, code string) (models.User, error)
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
// @Summary Подтверждение email
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Код подтверждения"
// @Success 200 {object} response.Response "Email подтверждён"
// @Failure 400 {object} response.ErrorResponse "Неверный или просроченный код"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
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
	role, err := models.ParseRole(req.Role)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), req.Email, role, req.Code)
	if err != nil {
		log.Error("verification failed", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user))
}
