package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

const noteColumns = `id, user_id, user_name, user_email, user_role, plan, proof_key,
	created_at, handled, handled_at, handled_by, approved, version`

// CreateAdminNotification сохраняет новый запрос на активацию плана.
func (s *Storage) CreateAdminNotification(ctx context.Context, n models.AdminNotification) error {
	const op = "storage.CreateAdminNotification"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO admin_notifications (` + noteColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)`
	_, err := s.q.ExecContext(ctx, query,
		n.ID, n.UserID, n.UserName, n.UserEmail, n.UserRole, string(n.Plan), n.ProofKey,
		n.CreatedAt, n.Handled, n.HandledAt, n.HandledBy, n.Approved)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetAdminNotification возвращает запрос по ID.
func (s *Storage) GetAdminNotification(ctx context.Context, id string) (models.AdminNotification, error) {
	const op = "storage.GetAdminNotification"
	if err := checkCtx(ctx, op); err != nil {
		return models.AdminNotification{}, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM admin_notifications WHERE id = $1`, id)
	n, err := scanNote(row)
	if err != nil {
		return models.AdminNotification{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return n, nil
}

// UpdateAdminNotification заменяет запрос при совпадении версии.
func (s *Storage) UpdateAdminNotification(ctx context.Context, n models.AdminNotification) (models.AdminNotification, error) {
	const op = "storage.UpdateAdminNotification"
	if err := checkCtx(ctx, op); err != nil {
		return models.AdminNotification{}, err
	}

	query := `UPDATE admin_notifications
			  SET proof_key = $3, handled = $4, handled_at = $5, handled_by = $6, approved = $7,
			      version = version + 1
			  WHERE id = $1 AND version = $2
			  RETURNING version`
	var version int
	err := s.q.QueryRowContext(ctx, query,
		n.ID, n.Version, n.ProofKey, n.Handled, n.HandledAt, n.HandledBy, n.Approved).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.versionMismatch(ctx, "admin_notifications", n.ID)
	}
	if err != nil {
		return models.AdminNotification{}, fmt.Errorf("%s: %s: %w", op, n.ID, err)
	}
	n.Version = version
	return n, nil
}

// ListAdminNotifications возвращает запросы от новых к старым.
func (s *Storage) ListAdminNotifications(ctx context.Context, onlyOpen bool) ([]models.AdminNotification, error) {
	const op = "storage.ListAdminNotifications"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + noteColumns + ` FROM admin_notifications`
	if onlyOpen {
		query += ` WHERE NOT handled`
	}
	query += ` ORDER BY seq DESC`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.AdminNotification
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanNote(row rowScanner) (models.AdminNotification, error) {
	var (
		n         models.AdminNotification
		plan      string
		handledAt sql.NullTime
		approved  sql.NullBool
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.UserName, &n.UserEmail, &n.UserRole, &plan, &n.ProofKey,
		&n.CreatedAt, &n.Handled, &handledAt, &n.HandledBy, &approved, &n.Version); err != nil {
		return models.AdminNotification{}, err
	}
	n.Plan = models.Plan(plan)
	if handledAt.Valid {
		n.HandledAt = &handledAt.Time
	}
	if approved.Valid {
		n.Approved = &approved.Bool
	}
	return n, nil
}
