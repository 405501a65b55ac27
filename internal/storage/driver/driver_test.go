package driver

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/memory"
)

func TestOpen(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		opened, err := Open(config.Storage{Driver: "memory"}, true, log)
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, opened.Store)
		assert.NoError(t, opened.Ready(context.Background()))
		assert.NoError(t, opened.Close())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(config.Storage{Driver: "sqlite"}, true, log)
		assert.ErrorContains(t, err, "unknown storage driver")
	})
}
