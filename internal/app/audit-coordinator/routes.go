// Package auditcoordinator собирает HTTP API координатора аудиторских заявок.
package auditcoordinator

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/auth/resend"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/auth/verify"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/approve"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/create"
	formlist "github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/list"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/remove"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/student"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/submit"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/update"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/forms/withdraw"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/health"
	notiflist "github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/notifications/list"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/notifications/markread"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/paymentrequests/decision"
	paymentlist "github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/paymentrequests/list"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/paymentrequests/proof"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/reminders/dismiss"
	reminderlist "github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/reminders/list"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/subscription/request"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	authservice "github.com/magabrotheeeer/audit-coordinator/internal/services/auth"
	formservice "github.com/magabrotheeeer/audit-coordinator/internal/services/forms"
	notifservice "github.com/magabrotheeeer/audit-coordinator/internal/services/notification"
	subservice "github.com/magabrotheeeer/audit-coordinator/internal/services/subscription"
)

// Services: сервисы, которые обслуживают маршруты API.
type Services struct {
	Auth          *authservice.AuthService
	Forms         *formservice.FormService
	Notifications *notifservice.NotificationService
	Subscription  *subservice.SubscriptionService
	Tokens        middlewarectx.TokenParser
	Checks        map[string]health.Check
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer, svc Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.Metrics,
	)

	idParam := middlewarectx.UUIDParam("id")

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit, cfg.RateBurst))
			r.Post("/signup", signup.New(logger, svc.Auth).ServeHTTP)
			r.Post("/verify", verify.New(logger, svc.Auth).ServeHTTP)
			r.Post("/verify/resend", resend.New(logger, svc.Auth).ServeHTTP)
			r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Tokens, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit, cfg.RateBurst))

			r.Get("/me", me.New(logger, svc.Notifications).ServeHTTP)
			r.Get("/notifications", notiflist.New(logger, svc.Notifications).ServeHTTP)
			r.Post("/notifications/read", markread.New(logger, svc.Notifications).ServeHTTP)

			r.Post("/forms", create.New(logger, svc.Forms).ServeHTTP)
			r.Get("/forms", formlist.New(logger, svc.Forms).ServeHTTP)
			r.Get("/forms/available", student.New(logger, svc.Forms, student.Available).ServeHTTP)
			r.Get("/forms/mine", student.New(logger, svc.Forms, student.Mine).ServeHTTP)
			r.With(idParam).Put("/forms/{id}", update.New(logger, svc.Forms).ServeHTTP)
			r.With(idParam).Post("/forms/{id}/approve", approve.New(logger, svc.Forms).ServeHTTP)
			r.With(idParam).Post("/forms/{id}/submission", submit.New(logger, svc.Forms).ServeHTTP)
			r.With(idParam).Delete("/forms/{id}/submission", withdraw.New(logger, svc.Forms).ServeHTTP)
			r.With(idParam).Delete("/forms/{id}", remove.New(logger, svc.Forms).ServeHTTP)

			r.Get("/reminders", reminderlist.New(logger, svc.Notifications).ServeHTTP)
			r.With(idParam).Post("/reminders/{id}/dismiss", dismiss.New(logger, svc.Notifications).ServeHTTP)

			r.Post("/subscription/requests", request.New(logger, svc.Subscription, cfg.MaxProofBytes).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
				r.Get("/payment-requests", paymentlist.New(logger, svc.Notifications).ServeHTTP)
				r.With(idParam).Get("/payment-requests/{id}/proof", proof.New(logger, svc.Subscription).ServeHTTP)
				r.With(idParam).Post("/payment-requests/{id}/decision", decision.New(logger, svc.Subscription).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, svc.Checks).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
