// Package student реализует HTTP-обработчики студенческих списков заявок:
// доступные для отклика и собственные отклики.
package student

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

// View выбирает часть models.StudentForms для ответа.
type View int

const (
	// Available: одобренные заявки без отклика.
	Available View = iota
	// Mine: заявки, на которые откликнулся студент.
	Mine
)

// Handler отдаёт один из студенческих списков.
type Handler struct {
	log     *slog.Logger
	service Service
	view    View
}

// Service возвращает представление заявок для студента.
type Service interface {
	StudentForms(ctx context.Context, session models.Session) (models.StudentForms, error)
}

// New создает новый Handler для представления view.
func New(log *slog.Logger, service Service, view View) *Handler {
	return &Handler{log: log, service: service, view: view}
}

// ServeHTTP godoc
// @Summary Заявки студента
// @Description /forms/available — доступные для отклика, /forms/mine — собственные отклики.
// @Tags Forms
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Только для студентов"
// @Router /forms/available [get]
// @Router /forms/mine [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.student"
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

	sf, err := h.service.StudentForms(r.Context(), session)
	if err != nil {
		log.Error("failed to load student forms", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	forms := sf.Available
	if h.view == Mine {
		forms = sf.MyReports
	}
	if forms == nil {
		forms = []models.Form{}
	}
	render.JSON(w, r, response.StatusOKWithData(forms))
}
