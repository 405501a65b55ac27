package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audit-coordinator/internal/cache"
	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/jwt"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/password"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	services "github.com/magabrotheeeer/audit-coordinator/internal/services/auth"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage/memory"
)

type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) VerificationCode(ctx context.Context, user models.User, code string) {
	m.Called(ctx, user, code)
}

type fixture struct {
	svc    *services.AuthService
	store  *memory.Store
	mail   *MailerMock
	maker  *jwt.Maker
	redis  *miniredis.Miniredis
	codes  map[string]string
	hasher *password.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	f := &fixture{
		store:  memory.New(),
		mail:   &MailerMock{},
		maker:  jwt.NewJWTMaker("test-secret", time.Hour),
		redis:  mr,
		codes:  map[string]string{},
		hasher: password.NewHasher(4),
	}
	f.mail.On("VerificationCode", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			user := args.Get(1).(models.User)
			f.codes[user.Email] = args.String(2)
		}).Maybe()

	clk := clock.NewFixed(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC))
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	f.svc = services.NewAuthService(f.store, c, f.hasher, f.maker, f.mail, clk, 2, 15*time.Minute, log)
	return f
}

func signup(role models.Role, email string) services.SignupInput {
	in := services.SignupInput{
		Name:            "Test User",
		Email:           email,
		Password:        "secret123",
		ConfirmPassword: "secret123",
		Role:            role,
	}
	if role == models.RoleAdmin {
		in.AdminCode = " HH-01 "
	}
	return in
}

func TestAuthService_Signup(t *testing.T) {
	tests := []struct {
		name         string
		input        services.SignupInput
		wantErr      error
		wantVerified bool
		wantAllowed  int
		wantMail     bool
	}{
		{
			name:         "student is verified immediately",
			input:        signup(models.RoleStudent, "Student@Example.com"),
			wantVerified: true,
			wantAllowed:  0,
		},
		{
			name:        "firm gets code and free entries",
			input:       signup(models.RoleFirm, "firm@example.com"),
			wantAllowed: 2,
			wantMail:    true,
		},
		{
			name:        "admin gets code",
			input:       signup(models.RoleAdmin, "admin@example.com"),
			wantAllowed: 2,
			wantMail:    true,
		},
		{
			name: "password mismatch",
			input: func() services.SignupInput {
				in := signup(models.RoleFirm, "firm@example.com")
				in.ConfirmPassword = "other"
				return in
			}(),
			wantErr: models.ErrPasswordMismatch,
		},
		{
			name: "admin without code",
			input: func() services.SignupInput {
				in := signup(models.RoleAdmin, "admin@example.com")
				in.AdminCode = "  "
				return in
			}(),
			wantErr: models.ErrValidation,
		},
		{
			name:    "unknown role",
			input:   signup(models.Role(0), "x@example.com"),
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			user, err := f.svc.Signup(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.mail.AssertNotCalled(t, "VerificationCode", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.NormalizeEmail(tt.input.Email), user.Email)
			assert.Equal(t, tt.wantVerified, user.EmailVerified)
			assert.Equal(t, models.StatusInactive, user.Subscription.Status)
			assert.Equal(t, models.PlanFree, user.Subscription.Plan)
			assert.Equal(t, tt.wantAllowed, user.Subscription.AllowedEntries)
			assert.NotEqual(t, tt.input.Password, user.PasswordHash)
			if tt.wantMail {
				assert.Len(t, f.codes[user.Email], 6)
			} else {
				assert.Empty(t, f.codes)
			}
		})
	}
}

func TestAuthService_Signup_AdminCodeTrimmed(t *testing.T) {
	f := newFixture(t)
	user, err := f.svc.Signup(context.Background(), signup(models.RoleAdmin, "admin@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "HH-01", user.AdminCode)
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, signup(models.RoleFirm, "firm@example.com"))
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, signup(models.RoleFirm, " FIRM@example.com"))
	assert.ErrorIs(t, err, models.ErrDuplicateAccount)

	// та же почта с другой ролью — отдельная учётная запись
	_, err = f.svc.Signup(ctx, signup(models.RoleStudent, "firm@example.com"))
	assert.NoError(t, err)
}

func TestAuthService_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Signup(ctx, signup(models.RoleFirm, "firm@example.com"))
	require.NoError(t, err)
	code := f.codes["firm@example.com"]

	_, err = f.svc.VerifyEmail(ctx, "firm@example.com", models.RoleFirm, "000000x")
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	user, err := f.svc.VerifyEmail(ctx, "firm@example.com", models.RoleFirm, " "+code+" ")
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	// код одноразовый, но повторное подтверждение безопасно
	assert.False(t, f.redis.Exists("verify:FIRM:firm@example.com"))
	user, err = f.svc.VerifyEmail(ctx, "firm@example.com", models.RoleFirm, code)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	_, err = f.svc.VerifyEmail(ctx, "nobody@example.com", models.RoleFirm, code)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthService_VerifyEmail_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Signup(ctx, signup(models.RoleFirm, "firm@example.com"))
	require.NoError(t, err)

	f.redis.FastForward(16 * time.Minute)
	_, err = f.svc.VerifyEmail(ctx, "firm@example.com", models.RoleFirm, f.codes["firm@example.com"])
	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestAuthService_VerifyEmail_TooManyAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Signup(ctx, signup(models.RoleFirm, "firm@example.com"))
	require.NoError(t, err)

	for range 5 {
		_, err = f.svc.VerifyEmail(ctx, "firm@example.com", models.RoleFirm, "wrong")
		require.ErrorIs(t, err, models.ErrInvalidCode)
	}
	_, err = f.svc.VerifyEmail(ctx, "firm@example.com", models.RoleFirm, f.codes["firm@example.com"])
	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestAuthService_ResendCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Signup(ctx, signup(models.RoleAdmin, "admin@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, signup(models.RoleStudent, "student@example.com"))
	require.NoError(t, err)

	require.NoError(t, f.svc.ResendCode(ctx, "admin@example.com", models.RoleAdmin))
	f.mail.AssertNumberOfCalls(t, "VerificationCode", 2)

	_, err = f.svc.VerifyEmail(ctx, "admin@example.com", models.RoleAdmin, f.codes["admin@example.com"])
	require.NoError(t, err)

	err = f.svc.ResendCode(ctx, "student@example.com", models.RoleStudent)
	assert.ErrorIs(t, err, models.ErrValidation)
	err = f.svc.ResendCode(ctx, "ghost@example.com", models.RoleFirm)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	student, err := f.svc.Signup(ctx, signup(models.RoleStudent, "student@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, signup(models.RoleFirm, "firm@example.com"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		role     models.Role
		password string
		wantErr  error
	}{
		{name: "wrong password", email: "student@example.com", role: models.RoleStudent, password: "nope", wantErr: models.ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@example.com", role: models.RoleStudent, password: "secret123", wantErr: models.ErrInvalidCredentials},
		{name: "wrong role", email: "student@example.com", role: models.RoleAdmin, password: "secret123", wantErr: models.ErrInvalidCredentials},
		{name: "unverified firm", email: "firm@example.com", role: models.RoleFirm, password: "secret123", wantErr: models.ErrEmailNotVerified},
		{name: "success", email: "Student@example.com", role: models.RoleStudent, password: "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, user, err := f.svc.Login(ctx, tt.email, tt.role, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, student.ID, user.ID)
			session, err := f.maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, models.Session{UserID: student.ID, Role: models.RoleStudent}, session)
		})
	}
}

func TestAuthService_LoginAfterVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Signup(ctx, signup(models.RoleFirm, "firm@example.com"))
	require.NoError(t, err)
	_, err = f.svc.VerifyEmail(ctx, "firm@example.com", models.RoleFirm, f.codes["firm@example.com"])
	require.NoError(t, err)

	token, user, err := f.svc.Login(ctx, "firm@example.com", models.RoleFirm, "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	me, err := f.svc.Me(ctx, models.Session{UserID: user.ID, Role: models.RoleFirm})
	require.NoError(t, err)
	assert.True(t, me.EmailVerified)
}
