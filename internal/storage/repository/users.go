package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

const userColumns = `id, name, email, password_hash, role, admin_code, email_verified,
	subscription, notifications, created_at, version`

// CreateUser сохраняет нового пользователя. Повтор пары email/роль — ErrDuplicateAccount.
func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	sub, err := json.Marshal(user.Subscription)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	notes, err := marshalNotifications(user.Notifications)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO users (id, name, email, password_hash, role, admin_code,
			      email_verified, subscription, notifications, created_at, version)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)`
	_, err = s.q.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.AdminCode,
		user.EmailVerified, sub, notes, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, models.ErrDuplicateAccount)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id string) (models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по нормализованному email и роли.
func (s *Storage) GetUserByEmail(ctx context.Context, email string, role models.Role) (models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}

	row := s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND role = $2`, email, role)
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

// UpdateUser заменяет запись пользователя целиком при совпадении версии.
func (s *Storage) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.UpdateUser"
	if err := checkCtx(ctx, op); err != nil {
		return models.User{}, err
	}

	sub, err := json.Marshal(user.Subscription)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	notes, err := marshalNotifications(user.Notifications)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users
			  SET name = $3, password_hash = $4, admin_code = $5, email_verified = $6,
			      subscription = $7, notifications = $8, version = version + 1
			  WHERE id = $1 AND version = $2
			  RETURNING version`
	var version int
	err = s.q.QueryRowContext(ctx, query,
		user.ID, user.Version, user.Name, user.PasswordHash, user.AdminCode,
		user.EmailVerified, sub, notes).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.versionMismatch(ctx, "users", user.ID)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: user %s: %w", op, user.ID, err)
	}
	user.Version = version
	return user, nil
}

func marshalNotifications(list []models.Notification) ([]byte, error) {
	if list == nil {
		list = []models.Notification{}
	}
	return json.Marshal(list)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		u          models.User
		sub, notes []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.AdminCode,
		&u.EmailVerified, &sub, &notes, &u.CreatedAt, &u.Version); err != nil {
		return models.User{}, err
	}
	if err := json.Unmarshal(sub, &u.Subscription); err != nil {
		return models.User{}, fmt.Errorf("decode subscription: %w", err)
	}
	if err := json.Unmarshal(notes, &u.Notifications); err != nil {
		return models.User{}, fmt.Errorf("decode notifications: %w", err)
	}
	return u, nil
}
