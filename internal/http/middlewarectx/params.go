package middlewarectx

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/audit-coordinator/internal/http/response"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// UUIDParam отвечает 404, если параметр маршрута name не является UUID.
// Идентификаторы всех сущностей — UUID, поэтому такой записи существовать не может.
func UUIDParam(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := uuid.Parse(chi.URLParam(r, name)); err != nil {
				w.WriteHeader(http.StatusNotFound)
				render.JSON(w, r, response.Error(models.ErrNotFound.Error()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
