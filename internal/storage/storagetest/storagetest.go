// Package storagetest содержит общий набор проверок для реализаций storage.TxStore.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

// Factory возвращает пустое хранилище.
type Factory func(t *testing.T) storage.TxStore

var errBoom = errors.New("boom")

// Run прогоняет набор проверок для хранилища.
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("forms", func(t *testing.T) { testForms(t, newStore(t)) })
	t.Run("admin notifications", func(t *testing.T) { testNotes(t, newStore(t)) })
	t.Run("atomic", func(t *testing.T) { testAtomic(t, newStore(t)) })
	t.Run("wipe", func(t *testing.T) { testWipe(t, newStore(t)) })
}

// NewUser возвращает пользователя с уникальным ID.
func NewUser(role models.Role, email string) models.User {
	return models.User{
		ID:           uuid.NewString(),
		Name:         "Test " + role.String(),
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Subscription: models.NewSubscription(role, 2),
		CreatedAt:    time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

// NewForm возвращает заявку владельца ownerID.
func NewForm(ownerID string) models.Form {
	ts := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	return models.Form{
		ID:              uuid.NewString(),
		CreatedByUserID: ownerID,
		Location:        "Berlin",
		ExpectedDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		AdminCodes:      []string{"x"},
		Fees:            models.FeeRange{From: 100, To: 200},
		PaymentTerm:     "30 days",
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

func testUsers(t *testing.T, s storage.TxStore) {
	ctx := context.Background()
	u := NewUser(models.RoleFirm, "firm@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	dup := NewUser(models.RoleFirm, "firm@example.com")
	assert.ErrorIs(t, s.CreateUser(ctx, dup), models.ErrDuplicateAccount)

	sameEmailOtherRole := NewUser(models.RoleStudent, "firm@example.com")
	require.NoError(t, s.CreateUser(ctx, sameEmailOtherRole))

	got, err := s.GetUserByEmail(ctx, "firm@example.com", models.RoleFirm)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, 2, got.Subscription.AllowedEntries)

	_, err = s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)

	got.EmailVerified = true
	got = got.WithNotification(models.Notification{ID: "n1", Kind: models.NotificationInfo, Message: "hi"})
	updated, err := s.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	_, err = s.UpdateUser(ctx, got)
	assert.ErrorIs(t, err, models.ErrConflict, "stale version must be rejected")

	reloaded, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.EmailVerified)
	require.Len(t, reloaded.Notifications, 1)
	assert.Equal(t, "hi", reloaded.Notifications[0].Message)
}

func testForms(t *testing.T, s storage.TxStore) {
	ctx := context.Background()
	owner := NewUser(models.RoleFirm, "owner@example.com")
	student := NewUser(models.RoleStudent, "student@example.com")
	require.NoError(t, s.CreateUser(ctx, owner))
	require.NoError(t, s.CreateUser(ctx, student))

	first := NewForm(owner.ID)
	second := NewForm(owner.ID)
	second.Location = "Munich"
	require.NoError(t, s.CreateForm(ctx, first))
	require.NoError(t, s.CreateForm(ctx, second))

	list, err := s.ListForms(ctx, storage.FormFilter{OwnerID: owner.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "forms are listed in creation order")

	f := list[1]
	f.IsApproved = true
	f.AdminFees = &models.FeeRange{From: 150, To: 180}
	f.StudentSubmission = &models.StudentSubmission{
		StudentID:   student.ID,
		StudentName: student.Name,
		Phone:       "+100",
		SubmittedAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	f, err = s.UpdateForm(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Version)

	mine, err := s.ListForms(ctx, storage.FormFilter{StudentID: student.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID)
	require.NotNil(t, mine[0].AdminFees)
	assert.Equal(t, 180, mine[0].AdminFees.To)

	del := list[0]
	del.Deleted = true
	_, err = s.UpdateForm(ctx, del)
	require.NoError(t, err)

	visible, err := s.ListForms(ctx, storage.FormFilter{})
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	all, err := s.ListForms(ctx, storage.FormFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.UpdateForm(ctx, del)
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = s.GetForm(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testNotes(t *testing.T, s storage.TxStore) {
	ctx := context.Background()
	u := NewUser(models.RoleFirm, "payer@example.com")
	require.NoError(t, s.CreateUser(ctx, u))

	older := models.AdminNotification{
		ID: uuid.NewString(), UserID: u.ID, UserName: u.Name, UserEmail: u.Email,
		UserRole: u.Role, Plan: models.PlanMonthly, ProofKey: "k1",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := older
	newer.ID = uuid.NewString()
	newer.Plan = models.PlanYearly
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	require.NoError(t, s.CreateAdminNotification(ctx, older))
	require.NoError(t, s.CreateAdminNotification(ctx, newer))

	open, err := s.ListAdminNotifications(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, newer.ID, open[0].ID, "newest first")

	n := open[1]
	approved := true
	handledAt := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	n.Handled, n.HandledAt, n.HandledBy, n.Approved = true, &handledAt, "admin", &approved
	_, err = s.UpdateAdminNotification(ctx, n)
	require.NoError(t, err)

	open, err = s.ListAdminNotifications(ctx, true)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	got, err := s.GetAdminNotification(ctx, older.ID)
	require.NoError(t, err)
	assert.True(t, got.Handled)
	require.NotNil(t, got.Approved)
	assert.True(t, *got.Approved)
	assert.Equal(t, models.PlanMonthly, got.Plan)

	_, err = s.UpdateAdminNotification(ctx, n)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func testAtomic(t *testing.T, s storage.TxStore) {
	ctx := context.Background()
	owner := NewUser(models.RoleFirm, "atomic@example.com")
	require.NoError(t, s.CreateUser(ctx, owner))

	form := NewForm(owner.ID)
	err := s.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		require.NoError(t, tx.CreateForm(ctx, form))
		u, err := tx.GetUser(ctx, owner.ID)
		require.NoError(t, err)
		u.Subscription.EntriesUsed++
		_, err = tx.UpdateUser(ctx, u)
		require.NoError(t, err)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	_, err = s.GetForm(ctx, form.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "rolled back form must not exist")
	u, err := s.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Subscription.EntriesUsed)

	err = s.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		return tx.CreateForm(ctx, form)
	})
	require.NoError(t, err)
	_, err = s.GetForm(ctx, form.ID)
	require.NoError(t, err)
}

func testWipe(t *testing.T, s storage.TxStore) {
	ctx := context.Background()
	u := NewUser(models.RoleStudent, "wipe@example.com")
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.Wipe(ctx))
	_, err := s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
