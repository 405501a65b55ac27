package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(_ *testing.T) storage.TxStore { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := storagetest.NewUser(models.RoleFirm, "copy@example.com")
	require.NoError(t, s.CreateUser(ctx, u))
	f := storagetest.NewForm(u.ID)
	require.NoError(t, s.CreateForm(ctx, f))

	got, err := s.GetForm(ctx, f.ID)
	require.NoError(t, err)
	got.AdminCodes[0] = "changed"

	again, err := s.GetForm(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", again.AdminCodes[0])
}
