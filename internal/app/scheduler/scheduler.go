// Package scheduler собирает планировщик напоминаний об оплате.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	mailerservice "github.com/magabrotheeeer/audit-coordinator/internal/services/mailer"
	schedulerservice "github.com/magabrotheeeer/audit-coordinator/internal/services/scheduler"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/driver"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	interval         time.Duration
	closeStore       func() error
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, ready func(context.Context) error) error {
	var err error
	for range 10 {
		if err = ready(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает новый экземпляр приложения планировщика. Миграции применяет
// основной сервис, планировщик только ждёт готовности схемы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	opened, err := driver.Open(cfg.Storage, false, logger)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, opened.Ready); err != nil {
		_ = opened.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	mail := mailerservice.NewMailerService(rabbitmq.NewPublisher(ch, rabbitmq.Exchange), cfg.Subscription.SupportEmail, logger)
	return &App{
		schedulerService: schedulerservice.NewSchedulerService(opened.Store, mail, clock.Real{}, logger),
		interval:         cfg.Scheduler.Interval,
		closeStore:       opened.Close,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.schedulerService.Run(ctx, a.interval)

	a.logger.Info("shutting down scheduler service")
	closeResources(a.ch, a.conn, a.logger)
	if err := a.closeStore(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
