package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/pgtest"
	"github.com/magabrotheeeer/audit-coordinator/internal/migrations"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/storagetest"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.TxStore {
		db := pgtest.Open(t)
		require.NoError(t, migrations.Run(db, pgtest.MigrationsPath(t)))
		s := NewWithDB(db)
		require.NoError(t, CheckDatabaseReady(t.Context(), s))
		return s
	})
}
