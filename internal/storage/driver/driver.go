// Package driver открывает хранилище, выбранное в конфигурации.
package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/metrics"
	"github.com/magabrotheeeer/audit-coordinator/internal/migrations"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/memory"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/repository"
)

// Opened: открытое хранилище с функцией закрытия и проверкой готовности.
type Opened struct {
	Store storage.TxStore
	Close func() error
	Ready func(ctx context.Context) error
}

// Open открывает хранилище по cfg.Driver. Для postgres применяются миграции,
// если migrate = true.
func Open(cfg config.Storage, migrate bool, log *slog.Logger) (Opened, error) {
	const op = "driver.Open"

	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		return Opened{
			Store: memory.New(),
			Close: func() error { return nil },
			Ready: func(context.Context) error { return nil },
		}, nil
	case "", "postgres":
	default:
		return Opened{}, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
	}

	db, err := repository.New(cfg.ConnectionString)
	if err != nil {
		return Opened{}, fmt.Errorf("%s: %w", op, err)
	}
	if migrate {
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return Opened{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err = metrics.RegisterDBStats(db.DB); err != nil {
		log.Warn("failed to register db stats collector", sl.Err(err))
	}
	return Opened{
		Store: db,
		Close: db.Close,
		Ready: func(ctx context.Context) error { return repository.CheckDatabaseReady(ctx, db) },
	}, nil
}
