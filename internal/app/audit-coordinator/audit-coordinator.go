package auditcoordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/audit-coordinator/internal/cache"
	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/grpc/server"
	"github.com/magabrotheeeer/audit-coordinator/internal/http/handlers/health"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/jwt"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/password"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/proofstore"
	authservice "github.com/magabrotheeeer/audit-coordinator/internal/services/auth"
	formservice "github.com/magabrotheeeer/audit-coordinator/internal/services/forms"
	mailerservice "github.com/magabrotheeeer/audit-coordinator/internal/services/mailer"
	notifservice "github.com/magabrotheeeer/audit-coordinator/internal/services/notification"
	subservice "github.com/magabrotheeeer/audit-coordinator/internal/services/subscription"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/driver"
)

// App: HTTP API координатора вместе с его зависимостями.
type App struct {
	server     *http.Server
	health     *server.HealthServer
	healthAddr string
	logger     *slog.Logger
	closers    []func() error
}

// New собирает приложение: хранилище, кеш, брокер, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{logger: logger, healthAddr: cfg.GRPCHealth.Address}

	opened, err := driver.Open(cfg.Storage, true, logger)
	if err != nil {
		return nil, err
	}
	store := opened.Store
	app.closers = append(app.closers, opened.Close)

	codes, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}
	app.closers = append(app.closers, codes.Close)

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	app.closers = append(app.closers, conn.Close)
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	// канал закрывается раньше соединения
	app.closers = append([]func() error{ch.Close}, app.closers...)

	proofs, err := proofstore.New(ctx, cfg.ProofStorage)
	if err != nil {
		app.close()
		return nil, err
	}

	clk := clock.Real{}
	tokens := jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL)
	mail := mailerservice.NewMailerService(rabbitmq.NewPublisher(ch, rabbitmq.Exchange), cfg.Subscription.SupportEmail, logger)

	checks := map[string]health.Check{
		"storage": opened.Ready,
		"cache":   codes.Ping,
		"broker":  brokerCheck(conn),
	}
	svc := Services{
		Auth: authservice.NewAuthService(store, codes, password.NewHasher(cfg.Subscription.PasswordCost), tokens, mail, clk,
			cfg.Subscription.Entries(), cfg.Subscription.CodeTTL, logger),
		Forms:         formservice.NewFormService(store, mail, clk, cfg.Subscription.CountsOnApproval(), logger),
		Notifications: notifservice.NewNotificationService(store, clk, logger),
		Subscription:  subservice.NewSubscriptionService(store, proofs, mail, clk, logger),
		Tokens:        tokens,
		Checks:        checks,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, svc)

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	if app.healthAddr != "" {
		grpcChecks := make(map[string]server.Check, len(checks))
		for name, c := range checks {
			grpcChecks[name] = server.Check(c)
		}
		app.health = server.NewHealthServer(grpcChecks, cfg.GRPCHealth.Interval, logger)
	}
	return app, nil
}

func brokerCheck(conn *amqp.Connection) health.Check {
	return func(context.Context) error {
		if conn.IsClosed() {
			return errors.New("rabbitmq connection is closed")
		}
		return nil
	}
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	if a.health != nil {
		go func() {
			if err := a.health.Serve(ctx, a.healthAddr); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		runErr = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return runErr
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
}
