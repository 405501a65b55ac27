// Package main Audit Coordinator API
//
// @title           Audit Coordinator API
// @version         1.0
// @description     API координации аудиторских заявок: фирмы публикуют заявки, администраторы одобряют их, студенты откликаются.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	auditcoordinator "github.com/magabrotheeeer/audit-coordinator/internal/app/audit-coordinator"
	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/logger"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	log.Info("starting audit-coordinator", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := auditcoordinator.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("audit-coordinator stopped gracefully")
}
