// Команда wipe-data удаляет все данные из хранилища. Только для разработки.
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/wipe-data -confirm
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/logger"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/driver"
)

func main() {
	confirm := flag.Bool("confirm", false, "really delete all users, forms and payment requests")
	flag.Parse()

	if !*confirm {
		fmt.Fprintln(os.Stderr, "refusing to wipe data without -confirm")
		os.Exit(2)
	}

	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	if cfg.Env == logger.EnvProd {
		log.Error("wipe-data is disabled in prod")
		os.Exit(1)
	}

	opened, err := driver.Open(cfg.Storage, false, log)
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() { _ = opened.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := opened.Store.Wipe(ctx); err != nil {
		log.Error("failed to wipe data", sl.Err(err))
		os.Exit(1)
	}
	log.Info("all data wiped", slog.String("driver", cfg.Storage.Driver))
}
