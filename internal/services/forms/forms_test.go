package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/memory"
)

type MailerMock struct{ mock.Mock }

func (m *MailerMock) SubmissionReceived(ctx context.Context, owner models.User, form models.Form) {
	m.Called(ctx, owner, form)
}

func (m *MailerMock) SubmissionWithdrawn(ctx context.Context, owner models.User, form models.Form, studentName string) {
	m.Called(ctx, owner, form, studentName)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	svc   *FormService
	store *memory.Store
	mail  *MailerMock
	clock *clock.Fixed
}

func newFixture(t *testing.T, countOnApproval bool) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		mail:  &MailerMock{},
		clock: clock.NewFixed(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
	}
	f.mail.On("SubmissionReceived", mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.mail.On("SubmissionWithdrawn", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	f.svc = NewFormService(f.store, f.mail, f.clock, countOnApproval, newNoopLogger())
	return f
}

func (f *fixture) addUser(t *testing.T, role models.Role, adminCode string, allowed int) models.User {
	t.Helper()
	u := models.User{
		ID:            uuid.NewString(),
		Name:          role.String() + " user",
		Email:         uuid.NewString() + "@example.com",
		Role:          role,
		AdminCode:     adminCode,
		EmailVerified: true,
		Subscription:  models.NewSubscription(role, allowed),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) used(t *testing.T, userID string) int {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.Subscription.EntriesUsed
}

func (f *fixture) stored(t *testing.T, formID string) models.Form {
	t.Helper()
	form, err := f.store.GetForm(context.Background(), formID)
	require.NoError(t, err)
	return form
}

func session(u models.User) models.Session {
	return models.Session{UserID: u.ID, Role: u.Role}
}

func fields(codes ...string) models.FormFields {
	return models.FormFields{
		Location:        "  Berlin ",
		ExpectedDate:    time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		AdminCodes:      codes,
		Fees:            models.FeeRange{From: 100, To: 300},
		PaymentTerm:     "30 days",
		PaymentReminder: true,
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateForm(t *testing.T) {
	ctx := context.Background()

	t.Run("firm creates form and spends one entry", func(t *testing.T) {
		f := newFixture(t, true)
		firm := f.addUser(t, models.RoleFirm, "", 2)

		form, err := f.svc.CreateForm(ctx, session(firm), fields("X"))
		require.NoError(t, err)
		assert.Equal(t, "Berlin", form.Location)
		assert.False(t, form.IsApproved)
		assert.Nil(t, form.StudentSubmission)
		assert.False(t, form.Deleted)
		assert.False(t, form.DeletedCounted)
		assert.False(t, form.EntryCounted)
		assert.Equal(t, 1, f.used(t, firm.ID))
	})

	t.Run("quota exceeded creates nothing", func(t *testing.T) {
		f := newFixture(t, true)
		firm := f.addUser(t, models.RoleFirm, "", 2)
		u, err := f.store.GetUser(ctx, firm.ID)
		require.NoError(t, err)
		u.Subscription.EntriesUsed = 2
		_, err = f.store.UpdateUser(ctx, u)
		require.NoError(t, err)

		_, err = f.svc.CreateForm(ctx, session(firm), fields("X"))
		var quota models.QuotaError
		require.ErrorAs(t, err, &quota)
		assert.Equal(t, 2, quota.Limit)
		assert.Equal(t, 2, quota.Used)
		assert.ErrorIs(t, err, models.ErrValidation)

		all, err := f.store.ListForms(ctx, storage.FormFilter{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Equal(t, 2, f.used(t, firm.ID))
	})

	t.Run("admin may own a form", func(t *testing.T) {
		f := newFixture(t, true)
		admin := f.addUser(t, models.RoleAdmin, "X", 2)
		_, err := f.svc.CreateForm(ctx, session(admin), fields("X"))
		require.NoError(t, err)
		assert.Equal(t, 1, f.used(t, admin.ID))
	})

	t.Run("student is forbidden", func(t *testing.T) {
		f := newFixture(t, true)
		student := f.addUser(t, models.RoleStudent, "", 2)
		_, err := f.svc.CreateForm(ctx, session(student), fields("X"))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t, true)
		firm := f.addUser(t, models.RoleFirm, "", 2)
		bad := fields(" ")
		bad.Location = "<b></b>"
		_, err := f.svc.CreateForm(ctx, session(firm), bad)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, 0, f.used(t, firm.ID))
	})
}

func TestQuota_ExactlyOncePerEvent(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name            string
		countOnApproval bool
		wantAfterCreate int
		wantAfterApprov int
		wantAfterDelete int
	}{
		{name: "approval counted", countOnApproval: true, wantAfterCreate: 1, wantAfterApprov: 2, wantAfterDelete: 3},
		{name: "approval not counted", countOnApproval: false, wantAfterCreate: 1, wantAfterApprov: 1, wantAfterDelete: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.countOnApproval)
			firm := f.addUser(t, models.RoleFirm, "", 10)
			admin := f.addUser(t, models.RoleAdmin, "x", 10)

			form, err := f.svc.CreateForm(ctx, session(firm), fields("X"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAfterCreate, f.used(t, firm.ID))

			for range 3 {
				_, err = f.svc.AdminApprove(ctx, session(admin), form.ID, models.AdminFields{})
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAfterApprov, f.used(t, firm.ID))
			assert.Equal(t, 0, f.used(t, admin.ID), "approval charges the owner, not the admin")

			for range 3 {
				require.NoError(t, f.svc.SoftDelete(ctx, session(firm), form.ID))
			}
			assert.Equal(t, tt.wantAfterDelete, f.used(t, firm.ID))

			stored := f.stored(t, form.ID)
			assert.True(t, stored.Deleted)
			assert.True(t, stored.DeletedCounted)
			assert.True(t, stored.EntryCounted)
		})
	}
}

func TestConsume_NeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	firm := f.addUser(t, models.RoleFirm, "", 2)
	admin := f.addUser(t, models.RoleAdmin, "x", 2)

	first, err := f.svc.CreateForm(ctx, session(firm), fields("x"))
	require.NoError(t, err)
	second, err := f.svc.CreateForm(ctx, session(firm), fields("x"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.used(t, firm.ID))

	_, err = f.svc.AdminApprove(ctx, session(admin), first.ID, models.AdminFields{})
	require.NoError(t, err)
	require.NoError(t, f.svc.SoftDelete(ctx, session(firm), second.ID))

	assert.Equal(t, 2, f.used(t, firm.ID))
	assert.True(t, f.stored(t, first.ID).EntryCounted)
	assert.True(t, f.stored(t, second.ID).DeletedCounted)
}

func TestSubmissionLocksAdminFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	firm := f.addUser(t, models.RoleFirm, "", 5)
	admin := f.addUser(t, models.RoleAdmin, "X", 0)
	student := f.addUser(t, models.RoleStudent, "", 0)

	form, err := f.svc.CreateForm(ctx, session(firm), fields("X"))
	require.NoError(t, err)
	_, err = f.svc.AdminApprove(ctx, session(admin), form.ID, models.AdminFields{
		Fees: &models.FeeRange{From: 150, To: 250},
	})
	require.NoError(t, err)

	_, err = f.svc.StudentSubmit(ctx, session(student), form.ID, models.SubmissionDetails{Phone: "+49 1", Notes: "ready"})
	require.NoError(t, err)

	_, err = f.svc.AdminUpdateFields(ctx, session(admin), form.ID, models.AdminFields{
		Fees:  &models.FeeRange{From: 1, To: 2},
		Terms: ptr("cash"),
	})
	assert.ErrorIs(t, err, models.ErrFormLocked)
	locked := f.stored(t, form.ID)
	assert.Equal(t, 250, locked.AdminFees.To)
	assert.Equal(t, "30 days", locked.PaymentTerm)

	_, err = f.svc.AdminApprove(ctx, session(admin), form.ID, models.AdminFields{Terms: ptr("cash")})
	assert.ErrorIs(t, err, models.ErrFormLocked)

	_, err = f.svc.StudentWithdraw(ctx, session(student), form.ID)
	require.NoError(t, err)

	updated, err := f.svc.AdminUpdateFields(ctx, session(admin), form.ID, models.AdminFields{Terms: ptr("cash")})
	require.NoError(t, err)
	assert.Equal(t, "cash", updated.PaymentTerm)
	assert.Equal(t, 250, updated.AdminFees.To)
	f.mail.AssertCalled(t, "SubmissionReceived", mock.Anything, mock.Anything, mock.Anything)
	f.mail.AssertCalled(t, "SubmissionWithdrawn", mock.Anything, mock.Anything, mock.Anything, student.Name)
}

func TestStudentWithdraw(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, models.User, models.Form) {
		f := newFixture(t, true)
		firm := f.addUser(t, models.RoleFirm, "", 5)
		admin := f.addUser(t, models.RoleAdmin, "X", 0)
		student := f.addUser(t, models.RoleStudent, "", 0)
		form, err := f.svc.CreateForm(ctx, session(firm), fields("X"))
		require.NoError(t, err)
		_, err = f.svc.AdminApprove(ctx, session(admin), form.ID, models.AdminFields{})
		require.NoError(t, err)
		_, err = f.svc.StudentSubmit(ctx, session(student), form.ID, models.SubmissionDetails{Phone: "1"})
		require.NoError(t, err)
		return f, student, form
	}

	t.Run("past date keeps the submission", func(t *testing.T) {
		f, student, form := setup(t)
		f.clock.Set(time.Date(2025, 3, 21, 8, 0, 0, 0, time.UTC))

		_, err := f.svc.StudentWithdraw(ctx, session(student), form.ID)
		assert.ErrorIs(t, err, models.ErrWithdrawalClosed)
		stored := f.stored(t, form.ID)
		require.NotNil(t, stored.StudentSubmission)
		assert.Equal(t, student.ID, stored.StudentSubmission.StudentID)
	})

	t.Run("same day is still allowed", func(t *testing.T) {
		f, student, form := setup(t)
		f.clock.Set(time.Date(2025, 3, 20, 23, 0, 0, 0, time.UTC))

		_, err := f.svc.StudentWithdraw(ctx, session(student), form.ID)
		require.NoError(t, err)
		assert.Nil(t, f.stored(t, form.ID).StudentSubmission)
	})

	t.Run("only the submitting student", func(t *testing.T) {
		f, _, form := setup(t)
		other := f.addUser(t, models.RoleStudent, "", 0)
		_, err := f.svc.StudentWithdraw(ctx, session(other), form.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestStudentSubmit_Rules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	firm := f.addUser(t, models.RoleFirm, "", 5)
	admin := f.addUser(t, models.RoleAdmin, "X", 0)
	student := f.addUser(t, models.RoleStudent, "", 0)
	other := f.addUser(t, models.RoleStudent, "", 0)

	form, err := f.svc.CreateForm(ctx, session(firm), fields("X"))
	require.NoError(t, err)

	_, err = f.svc.StudentSubmit(ctx, session(student), form.ID, models.SubmissionDetails{Phone: "1"})
	assert.ErrorIs(t, err, models.ErrNotApproved)

	_, err = f.svc.AdminApprove(ctx, session(admin), form.ID, models.AdminFields{})
	require.NoError(t, err)

	_, err = f.svc.StudentSubmit(ctx, session(student), form.ID, models.SubmissionDetails{})
	assert.ErrorIs(t, err, models.ErrValidation)

	got, err := f.svc.StudentSubmit(ctx, session(student), form.ID, models.SubmissionDetails{Phone: "1"})
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), got.StudentSubmission.SubmittedAt)
	assert.Nil(t, got.AdminCodes, "students never see admin codes")

	_, err = f.svc.StudentSubmit(ctx, session(other), form.ID, models.SubmissionDetails{Phone: "2"})
	assert.ErrorIs(t, err, models.ErrAlreadySubmitted)

	_, err = f.svc.StudentSubmit(ctx, session(firm), form.ID, models.SubmissionDetails{Phone: "2"})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestList_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	firm := f.addUser(t, models.RoleFirm, "", 10)
	otherFirm := f.addUser(t, models.RoleFirm, "", 10)
	adminA := f.addUser(t, models.RoleAdmin, "X", 0)
	adminB := f.addUser(t, models.RoleAdmin, "x ", 0)
	student := f.addUser(t, models.RoleStudent, "", 0)

	yz, err := f.svc.CreateForm(ctx, session(firm), fields("Y", "Z"))
	require.NoError(t, err)
	x, err := f.svc.CreateForm(ctx, session(firm), fields("X"))
	require.NoError(t, err)
	_, err = f.svc.CreateForm(ctx, session(otherFirm), fields("Q"))
	require.NoError(t, err)

	t.Run("admin code matching", func(t *testing.T) {
		list, err := f.svc.List(ctx, session(adminA))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, x.ID, list[0].ID)

		list, err = f.svc.List(ctx, session(adminB))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, x.ID, list[0].ID)

		_, err = f.svc.AdminApprove(ctx, session(adminA), yz.ID, models.AdminFields{})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("firm sees own forms without admin fees until approved", func(t *testing.T) {
		_, err := f.svc.AdminUpdateFields(ctx, session(adminA), x.ID, models.AdminFields{Fees: &models.FeeRange{From: 1, To: 5}})
		require.NoError(t, err)

		list, err := f.svc.List(ctx, session(firm))
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, form := range list {
			assert.Nil(t, form.AdminFees)
		}

		_, err = f.svc.AdminApprove(ctx, session(adminA), x.ID, models.AdminFields{})
		require.NoError(t, err)
		list, err = f.svc.List(ctx, session(firm))
		require.NoError(t, err)
		require.NotNil(t, list[1].AdminFees)
		assert.Equal(t, 5, list[1].AdminFees.To)
	})

	t.Run("student sees available and own reports", func(t *testing.T) {
		views, err := f.svc.StudentForms(ctx, session(student))
		require.NoError(t, err)
		require.Len(t, views.Available, 1)
		assert.Equal(t, x.ID, views.Available[0].ID)
		assert.Nil(t, views.Available[0].AdminCodes)
		require.NotNil(t, views.Available[0].AdminFees)
		assert.Empty(t, views.MyReports)

		_, err = f.svc.StudentSubmit(ctx, session(student), x.ID, models.SubmissionDetails{Phone: "1"})
		require.NoError(t, err)

		views, err = f.svc.StudentForms(ctx, session(student))
		require.NoError(t, err)
		assert.Empty(t, views.Available)
		require.Len(t, views.MyReports, 1)
		assert.Equal(t, x.ID, views.MyReports[0].ID)

		_, err = f.svc.StudentForms(ctx, session(firm))
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("deleted forms disappear", func(t *testing.T) {
		require.NoError(t, f.svc.SoftDelete(ctx, session(firm), yz.ID))
		list, err := f.svc.List(ctx, session(firm))
		require.NoError(t, err)
		assert.Len(t, list, 1)

		_, err = f.svc.AdminUpdateFields(ctx, session(adminA), yz.ID, models.AdminFields{})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestSoftDelete_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	firm := f.addUser(t, models.RoleFirm, "", 5)
	other := f.addUser(t, models.RoleFirm, "", 5)
	form, err := f.svc.CreateForm(ctx, session(firm), fields("X"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SoftDelete(ctx, session(other), form.ID), models.ErrForbidden)
	assert.ErrorIs(t, f.svc.SoftDelete(ctx, session(firm), uuid.NewString()), models.ErrNotFound)
	assert.False(t, f.stored(t, form.ID).Deleted)
}
