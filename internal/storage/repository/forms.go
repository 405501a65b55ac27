package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

const formColumns = `id, created_by_user_id, location, expected_date, admin_codes, fees,
	admin_fees, payment_term, payment_reminder, reminder_notified, is_approved,
	entry_counted, deleted, deleted_counted, student_submission, created_at, updated_at, version`

// formRow: JSONB-представление полей заявки.
type formRow struct {
	codes, fees, adminFees, submission []byte
}

func encodeForm(f models.Form) (formRow, error) {
	var (
		r   formRow
		err error
	)
	codes := f.AdminCodes
	if codes == nil {
		codes = []string{}
	}
	if r.codes, err = json.Marshal(codes); err != nil {
		return r, err
	}
	if r.fees, err = json.Marshal(f.Fees); err != nil {
		return r, err
	}
	if f.AdminFees != nil {
		if r.adminFees, err = json.Marshal(f.AdminFees); err != nil {
			return r, err
		}
	}
	if f.StudentSubmission != nil {
		if r.submission, err = json.Marshal(f.StudentSubmission); err != nil {
			return r, err
		}
	}
	return r, nil
}

// CreateForm сохраняет новую заявку.
func (s *Storage) CreateForm(ctx context.Context, form models.Form) error {
	const op = "storage.CreateForm"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	r, err := encodeForm(form)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO forms (` + formColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)`
	_, err = s.q.ExecContext(ctx, query,
		form.ID, form.CreatedByUserID, form.Location, form.ExpectedDate, r.codes, r.fees,
		r.adminFees, form.PaymentTerm, form.PaymentReminder, form.ReminderNotified, form.IsApproved,
		form.EntryCounted, form.Deleted, form.DeletedCounted, r.submission, form.CreatedAt, form.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetForm возвращает заявку по ID, включая удалённые.
func (s *Storage) GetForm(ctx context.Context, id string) (models.Form, error) {
	const op = "storage.GetForm"
	if err := checkCtx(ctx, op); err != nil {
		return models.Form{}, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE id = $1`, id)
	f, err := scanForm(row)
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return f, nil
}

// UpdateForm заменяет заявку целиком при совпадении версии.
func (s *Storage) UpdateForm(ctx context.Context, form models.Form) (models.Form, error) {
	const op = "storage.UpdateForm"
	if err := checkCtx(ctx, op); err != nil {
		return models.Form{}, err
	}

	r, err := encodeForm(form)
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE forms
			  SET location = $3, expected_date = $4, admin_codes = $5, fees = $6, admin_fees = $7,
			      payment_term = $8, payment_reminder = $9, reminder_notified = $10, is_approved = $11,
			      entry_counted = $12, deleted = $13, deleted_counted = $14, student_submission = $15,
			      updated_at = $16, version = version + 1
			  WHERE id = $1 AND version = $2
			  RETURNING version`
	var version int
	err = s.q.QueryRowContext(ctx, query,
		form.ID, form.Version, form.Location, form.ExpectedDate, r.codes, r.fees, r.adminFees,
		form.PaymentTerm, form.PaymentReminder, form.ReminderNotified, form.IsApproved,
		form.EntryCounted, form.Deleted, form.DeletedCounted, r.submission, form.UpdatedAt).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.versionMismatch(ctx, "forms", form.ID)
	}
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: form %s: %w", op, form.ID, err)
	}
	form.Version = version
	return form, nil
}

// ListForms возвращает заявки в порядке создания.
func (s *Storage) ListForms(ctx context.Context, filter storage.FormFilter) ([]models.Form, error) {
	const op = "storage.ListForms"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !filter.IncludeDeleted {
		where = append(where, "NOT deleted")
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		where = append(where, fmt.Sprintf("created_by_user_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	query := `SELECT ` + formColumns + ` FROM forms`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanForm(row rowScanner) (models.Form, error) {
	var (
		f models.Form
		r formRow
	)
	if err := row.Scan(&f.ID, &f.CreatedByUserID, &f.Location, &f.ExpectedDate, &r.codes, &r.fees,
		&r.adminFees, &f.PaymentTerm, &f.PaymentReminder, &f.ReminderNotified, &f.IsApproved,
		&f.EntryCounted, &f.Deleted, &f.DeletedCounted, &r.submission, &f.CreatedAt, &f.UpdatedAt,
		&f.Version); err != nil {
		return models.Form{}, err
	}
	if err := json.Unmarshal(r.codes, &f.AdminCodes); err != nil {
		return models.Form{}, fmt.Errorf("decode admin codes: %w", err)
	}
	if err := json.Unmarshal(r.fees, &f.Fees); err != nil {
		return models.Form{}, fmt.Errorf("decode fees: %w", err)
	}
	if r.adminFees != nil {
		f.AdminFees = &models.FeeRange{}
		if err := json.Unmarshal(r.adminFees, f.AdminFees); err != nil {
			return models.Form{}, fmt.Errorf("decode admin fees: %w", err)
		}
	}
	if r.submission != nil {
		f.StudentSubmission = &models.StudentSubmission{}
		if err := json.Unmarshal(r.submission, f.StudentSubmission); err != nil {
			return models.Form{}, fmt.Errorf("decode submission: %w", err)
		}
	}
	return f, nil
}
