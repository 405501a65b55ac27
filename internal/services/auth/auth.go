// Package services содержит регистрацию, подтверждение email и вход пользователей.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/password"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sanitize"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

// maxCodeAttempts: число неверных попыток, после которого код сгорает.
const maxCodeAttempts = 5

// CodeCache хранит коды подтверждения email с ограниченным временем жизни.
type CodeCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Compare(hash, raw string) error
}

// TokenMaker выпускает токен сессии.
type TokenMaker interface {
	GenerateToken(session models.Session) (string, error)
}

// Mailer отправляет код подтверждения.
type Mailer interface {
	VerificationCode(ctx context.Context, user models.User, code string)
}

// SignupInput: данные регистрации.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            models.Role
	AdminCode       string
}

// verificationCode: запись в кеше по ключу verify:<role>:<email>.
type verificationCode struct {
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
}

// AuthService отвечает за регистрацию, подтверждение email и выдачу JWT.
type AuthService struct {
	store       storage.Store
	codes       CodeCache
	hasher      PasswordHasher
	tokens      TokenMaker
	mail        Mailer
	clock       clock.Clock
	log         *slog.Logger
	freeEntries int
	codeTTL     time.Duration
	newCode     func() (string, error)
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(
	store storage.Store,
	codes CodeCache,
	hasher PasswordHasher,
	tokens TokenMaker,
	mail Mailer,
	clk clock.Clock,
	freeEntries int,
	codeTTL time.Duration,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		store:       store,
		codes:       codes,
		hasher:      hasher,
		tokens:      tokens,
		mail:        mail,
		clock:       clk,
		log:         log,
		freeEntries: freeEntries,
		codeTTL:     codeTTL,
		newCode:     randomCode,
	}
}

// Signup регистрирует пользователя. Студент подтверждён сразу, фирма и
// администратор получают шестизначный код на почту.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (models.User, error) {
	const op = "auth.Signup"
	log := s.log.With(slog.String("op", op))

	in.Name = sanitize.Text(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	in.AdminCode = strings.TrimSpace(in.AdminCode)
	switch {
	case !in.Role.Valid():
		return models.User{}, fmt.Errorf("%s: %w: unknown role", op, models.ErrValidation)
	case in.Name == "" || in.Email == "" || in.Password == "":
		return models.User{}, fmt.Errorf("%s: %w: name, email and password are required", op, models.ErrValidation)
	case in.Password != in.ConfirmPassword:
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrPasswordMismatch)
	case in.Role == models.RoleAdmin && in.AdminCode == "":
		return models.User{}, fmt.Errorf("%s: %w: admin code is required", op, models.ErrValidation)
	}
	if in.Role != models.RoleAdmin {
		in.AdminCode = ""
	}

	_, err := s.store.GetUserByEmail(ctx, in.Email, in.Role)
	switch {
	case err == nil:
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrDuplicateAccount)
	case !errors.Is(err, models.ErrNotFound):
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  hash,
		Role:          in.Role,
		AdminCode:     in.AdminCode,
		EmailVerified: in.Role == models.RoleStudent,
		Subscription:  models.NewSubscription(in.Role, s.freeEntries),
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("user registered", slog.String("user_id", user.ID), slog.String("role", user.Role.String()))

	if !user.EmailVerified {
		// Пользователь уже создан: при сбое кеша код можно запросить повторно.
		if err := s.issueCode(ctx, user); err != nil {
			log.Error("failed to issue verification code", sl.Err(err))
		}
	}
	return user, nil
}

// VerifyEmail подтверждает email кодом из письма.
func (s *AuthService) VerifyEmail(ctx context.Context, email string, role models.Role, code string) (models.User, error) {
	const op = "auth.VerifyEmail"

	user, err := s.store.GetUserByEmail(ctx, models.NormalizeEmail(email), role)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if user.EmailVerified {
		return user, nil
	}

	key := codeKey(user)
	var stored verificationCode
	found, err := s.codes.Get(ctx, key, &stored)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCode)
	}
	if stored.Code != strings.TrimSpace(code) {
		stored.Attempts++
		if stored.Attempts >= maxCodeAttempts {
			err = s.codes.Invalidate(ctx, key)
		} else {
			err = s.codes.Set(ctx, key, stored, s.codeTTL)
		}
		if err != nil {
			s.log.Error("failed to update verification code", slog.String("op", op), sl.Err(err))
		}
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCode)
	}

	user.EmailVerified = true
	if user, err = s.store.UpdateUser(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.codes.Invalidate(ctx, key); err != nil {
		s.log.Error("failed to invalidate verification code", slog.String("op", op), sl.Err(err))
	}
	s.log.Info("email verified", slog.String("op", op), slog.String("user_id", user.ID))
	return user, nil
}

// ResendCode выпускает новый код для неподтверждённой учётной записи.
func (s *AuthService) ResendCode(ctx context.Context, email string, role models.Role) error {
	const op = "auth.ResendCode"

	user, err := s.store.GetUserByEmail(ctx, models.NormalizeEmail(email), role)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.EmailVerified {
		return fmt.Errorf("%s: %w: email already verified", op, models.ErrValidation)
	}
	if err := s.issueCode(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Login проверяет пароль и возвращает JWT вместе с пользователем.
func (s *AuthService) Login(ctx context.Context, email string, role models.Role, rawPassword string) (string, models.User, error) {
	const op = "auth.Login"

	user, err := s.store.GetUserByEmail(ctx, models.NormalizeEmail(email), role)
	if errors.Is(err, models.ErrNotFound) {
		return "", models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	err = s.hasher.Compare(user.PasswordHash, rawPassword)
	if errors.Is(err, password.ErrMismatch) {
		return "", models.User{}, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !user.EmailVerified {
		return "", models.User{}, fmt.Errorf("%s: %w", op, models.ErrEmailNotVerified)
	}

	token, err := s.tokens.GenerateToken(models.Session{UserID: user.ID, Role: user.Role})
	if err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// Me возвращает профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, session models.Session) (models.User, error) {
	const op = "auth.Me"
	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *AuthService) issueCode(ctx context.Context, user models.User) error {
	code, err := s.newCode()
	if err != nil {
		return err
	}
	if err := s.codes.Set(ctx, codeKey(user), verificationCode{Code: code}, s.codeTTL); err != nil {
		return err
	}
	s.mail.VerificationCode(ctx, user, code)
	return nil
}

func codeKey(user models.User) string {
	return "verify:" + user.Role.String() + ":" + user.Email
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
