// Package services управляет жизненным циклом заявок на аудит: создание фирмой,
// правка и одобрение администратором, отклик и отзыв студентом, мягкое удаление.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/month"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sanitize"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/metrics"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	subservice "github.com/magabrotheeeer/audit-coordinator/internal/services/subscription"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

// Mailer: письма владельцу заявки.
type Mailer interface {
	SubmissionReceived(ctx context.Context, owner models.User, form models.Form)
	SubmissionWithdrawn(ctx context.Context, owner models.User, form models.Form, studentName string)
}

// FormService реализует операции над заявками.
type FormService struct {
	store storage.TxStore
	mail  Mailer
	clock clock.Clock
	log   *slog.Logger
	// countOnApproval включает списание записи при первом одобрении в дополнение к списанию при создании.
	countOnApproval bool
}

// NewFormService создает новый экземпляр FormService.
func NewFormService(store storage.TxStore, mail Mailer, clk clock.Clock, countOnApproval bool, log *slog.Logger) *FormService {
	return &FormService{
		store:           store,
		mail:            mail,
		clock:           clk,
		log:             log,
		countOnApproval: countOnApproval,
	}
}

// CreateForm создаёт заявку от имени фирмы или администратора и списывает одну запись.
func (s *FormService) CreateForm(ctx context.Context, session models.Session, fields models.FormFields) (models.Form, error) {
	const op = "forms.CreateForm"
	log := s.log.With(slog.String("op", op), slog.String("user_id", session.UserID))

	canOwn := models.SwitchRole(session.Role,
		func() bool { return true },
		func() bool { return false },
		func() bool { return true },
	)
	if !canOwn {
		return models.Form{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	fields, err := cleanFields(fields)
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now().UTC()
	form := models.Form{
		ID:              uuid.NewString(),
		CreatedByUserID: session.UserID,
		Location:        fields.Location,
		ExpectedDate:    month.Civil(fields.ExpectedDate),
		AdminCodes:      fields.AdminCodes,
		Fees:            fields.Fees,
		PaymentTerm:     fields.PaymentTerm,
		PaymentReminder: fields.PaymentReminder,
		// Без списания при одобрении запись считается учтённой уже при создании.
		EntryCounted: !s.countOnApproval,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		owner, err := tx.GetUser(ctx, session.UserID)
		if err != nil {
			return err
		}
		if !subservice.CanCreateEntry(owner) {
			metrics.QuotaRejections.Inc()
			return models.QuotaError{
				Limit: owner.Subscription.AllowedEntries,
				Used:  owner.Subscription.EntriesUsed,
			}
		}
		if err = tx.CreateForm(ctx, form); err != nil {
			return err
		}
		owner, _ = subservice.ConsumeEntry(owner)
		_, err = tx.UpdateUser(ctx, owner)
		return err
	})
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.FormEvents.WithLabelValues("created").Inc()
	log.Info("form created", slog.String("form_id", form.ID))
	return Visible(session.Role, form), nil
}

// AdminUpdateFields меняет вознаграждение и условия оплаты, пока у заявки нет отклика.
func (s *FormService) AdminUpdateFields(ctx context.Context, session models.Session, formID string, fields models.AdminFields) (models.Form, error) {
	const op = "forms.AdminUpdateFields"

	if session.Role != models.RoleAdmin {
		return models.Form{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if err := validateAdminFields(fields); err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	var form models.Form
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		if form, err = s.adminForm(ctx, tx, session, formID); err != nil {
			return err
		}
		if form.Locked() {
			return models.ErrFormLocked
		}
		form = s.applyAdminFields(form, fields)
		form, err = tx.UpdateForm(ctx, form)
		return err
	})
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.FormEvents.WithLabelValues("admin_updated").Inc()
	return form, nil
}

// AdminApprove одобряет заявку. При первом одобрении списывается запись владельца.
func (s *FormService) AdminApprove(ctx context.Context, session models.Session, formID string, fields models.AdminFields) (models.Form, error) {
	const op = "forms.AdminApprove"
	log := s.log.With(slog.String("op", op), slog.String("form_id", formID))

	if session.Role != models.RoleAdmin {
		return models.Form{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if err := validateAdminFields(fields); err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	var form models.Form
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		if form, err = s.adminForm(ctx, tx, session, formID); err != nil {
			return err
		}
		if form.Locked() && (fields.Fees != nil || fields.Terms != nil) {
			return models.ErrFormLocked
		}
		form = s.applyAdminFields(form, fields)
		form.IsApproved = true

		if !form.EntryCounted {
			owner, err := tx.GetUser(ctx, form.CreatedByUserID)
			if err != nil {
				return err
			}
			owner, _ = subservice.ConsumeEntry(owner)
			if _, err = tx.UpdateUser(ctx, owner); err != nil {
				return err
			}
			form.EntryCounted = true
		}
		form, err = tx.UpdateForm(ctx, form)
		return err
	})
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.FormEvents.WithLabelValues("approved").Inc()
	log.Info("form approved")
	return form, nil
}

// StudentSubmit записывает отклик студента на одобренную свободную заявку.
func (s *FormService) StudentSubmit(ctx context.Context, session models.Session, formID string, details models.SubmissionDetails) (models.Form, error) {
	const op = "forms.StudentSubmit"
	log := s.log.With(slog.String("op", op), slog.String("form_id", formID))

	if session.Role != models.RoleStudent {
		return models.Form{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	details.Phone = sanitize.Text(details.Phone)
	details.Notes = sanitize.Text(details.Notes)
	if details.Phone == "" {
		return models.Form{}, fmt.Errorf("%s: %w: phone is required", op, models.ErrValidation)
	}

	var form models.Form
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		student, err := tx.GetUser(ctx, session.UserID)
		if err != nil {
			return err
		}
		if form, err = liveForm(ctx, tx, formID); err != nil {
			return err
		}
		if !form.IsApproved {
			return models.ErrNotApproved
		}
		if form.StudentSubmission != nil {
			return models.ErrAlreadySubmitted
		}
		form.StudentSubmission = &models.StudentSubmission{
			StudentID:    student.ID,
			StudentName:  student.Name,
			StudentEmail: student.Email,
			Phone:        details.Phone,
			Notes:        details.Notes,
			SubmittedAt:  s.clock.Now().UTC(),
		}
		form.UpdatedAt = form.StudentSubmission.SubmittedAt
		form, err = tx.UpdateForm(ctx, form)
		return err
	})
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.FormEvents.WithLabelValues("submitted").Inc()
	log.Info("student submitted", slog.String("student_id", session.UserID))
	if owner, err := s.store.GetUser(ctx, form.CreatedByUserID); err != nil {
		log.Warn("failed to load form owner for mail", sl.Err(err))
	} else {
		s.mail.SubmissionReceived(ctx, owner, form)
	}
	return Visible(session.Role, form), nil
}

// StudentWithdraw снимает отклик студента, пока дата аудита не прошла.
func (s *FormService) StudentWithdraw(ctx context.Context, session models.Session, formID string) (models.Form, error) {
	const op = "forms.StudentWithdraw"
	log := s.log.With(slog.String("op", op), slog.String("form_id", formID))

	if session.Role != models.RoleStudent {
		return models.Form{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	var (
		form        models.Form
		studentName string
	)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		if form, err = liveForm(ctx, tx, formID); err != nil {
			return err
		}
		sub := form.StudentSubmission
		if sub == nil {
			return models.ErrNoSubmission
		}
		if sub.StudentID != session.UserID {
			return models.ErrForbidden
		}
		now := s.clock.Now()
		if !month.OnOrAfter(form.ExpectedDate, now) {
			return models.ErrWithdrawalClosed
		}
		studentName = sub.StudentName
		form.StudentSubmission = nil
		form.UpdatedAt = now.UTC()
		form, err = tx.UpdateForm(ctx, form)
		return err
	})
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.FormEvents.WithLabelValues("withdrawn").Inc()
	log.Info("student withdrew", slog.String("student_id", session.UserID))
	if owner, err := s.store.GetUser(ctx, form.CreatedByUserID); err != nil {
		log.Warn("failed to load form owner for mail", sl.Err(err))
	} else {
		s.mail.SubmissionWithdrawn(ctx, owner, form, studentName)
	}
	return Visible(session.Role, form), nil
}

// SoftDelete помечает заявку удалённой. Удаление стоит одну запись, повторное — ничего.
func (s *FormService) SoftDelete(ctx context.Context, session models.Session, formID string) error {
	const op = "forms.SoftDelete"
	log := s.log.With(slog.String("op", op), slog.String("form_id", formID))

	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		form, err := tx.GetForm(ctx, formID)
		if err != nil {
			return err
		}
		if form.CreatedByUserID != session.UserID {
			return models.ErrForbidden
		}
		if form.Deleted && form.DeletedCounted {
			return nil
		}
		form.Deleted = true
		if !form.DeletedCounted {
			owner, err := tx.GetUser(ctx, form.CreatedByUserID)
			if err != nil {
				return err
			}
			owner, _ = subservice.ConsumeEntry(owner)
			if _, err = tx.UpdateUser(ctx, owner); err != nil {
				return err
			}
			form.DeletedCounted = true
		}
		form.UpdatedAt = s.clock.Now().UTC()
		_, err = tx.UpdateForm(ctx, form)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.FormEvents.WithLabelValues("deleted").Inc()
	log.Info("form deleted")
	return nil
}

// List возвращает заявки, видимые пользователю. Для студента это заявки,
// доступные для отклика.
func (s *FormService) List(ctx context.Context, session models.Session) ([]models.Form, error) {
	const op = "forms.List"

	list := models.SwitchRole(session.Role,
		func() lister {
			return func(ctx context.Context) ([]models.Form, error) {
				return s.store.ListForms(ctx, storage.FormFilter{OwnerID: session.UserID})
			}
		},
		func() lister { return s.available },
		func() lister {
			return func(ctx context.Context) ([]models.Form, error) {
				return s.byAdminCode(ctx, session.UserID)
			}
		},
	)
	forms, err := list(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return visibleAll(session.Role, forms), nil
}

type lister func(ctx context.Context) ([]models.Form, error)

// StudentForms возвращает доступные заявки и заявки с откликом самого студента.
func (s *FormService) StudentForms(ctx context.Context, session models.Session) (models.StudentForms, error) {
	const op = "forms.StudentForms"

	if session.Role != models.RoleStudent {
		return models.StudentForms{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	available, err := s.available(ctx)
	if err != nil {
		return models.StudentForms{}, fmt.Errorf("%s: %w", op, err)
	}
	mine, err := s.store.ListForms(ctx, storage.FormFilter{StudentID: session.UserID})
	if err != nil {
		return models.StudentForms{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.StudentForms{
		Available: visibleAll(models.RoleStudent, available),
		MyReports: visibleAll(models.RoleStudent, mine),
	}, nil
}

func (s *FormService) available(ctx context.Context) ([]models.Form, error) {
	all, err := s.store.ListForms(ctx, storage.FormFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]models.Form, 0, len(all))
	for _, f := range all {
		if f.Available() {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *FormService) byAdminCode(ctx context.Context, adminID string) ([]models.Form, error) {
	admin, err := s.store.GetUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListForms(ctx, storage.FormFilter{})
	if err != nil {
		return nil, err
	}
	return FilterByAdminCode(all, admin.AdminCode), nil
}

// FilterByAdminCode оставляет заявки, помеченные кодом администратора.
func FilterByAdminCode(forms []models.Form, code string) []models.Form {
	out := make([]models.Form, 0, len(forms))
	for _, f := range forms {
		if f.MatchesAdminCode(code) {
			out = append(out, f)
		}
	}
	return out
}

// adminForm загружает неудалённую заявку, доступную администратору по коду.
func (s *FormService) adminForm(ctx context.Context, tx storage.Store, session models.Session, formID string) (models.Form, error) {
	admin, err := tx.GetUser(ctx, session.UserID)
	if err != nil {
		return models.Form{}, err
	}
	form, err := liveForm(ctx, tx, formID)
	if err != nil {
		return models.Form{}, err
	}
	if !form.MatchesAdminCode(admin.AdminCode) {
		return models.Form{}, models.ErrForbidden
	}
	return form, nil
}

func (s *FormService) applyAdminFields(form models.Form, fields models.AdminFields) models.Form {
	if fields.Fees != nil {
		fees := *fields.Fees
		form.AdminFees = &fees
	}
	if fields.Terms != nil {
		form.PaymentTerm = sanitize.Text(*fields.Terms)
	}
	form.UpdatedAt = s.clock.Now().UTC()
	return form
}

// liveForm загружает заявку; удалённая считается ненайденной.
func liveForm(ctx context.Context, tx storage.Store, formID string) (models.Form, error) {
	form, err := tx.GetForm(ctx, formID)
	if err != nil {
		return models.Form{}, err
	}
	if form.Deleted {
		return models.Form{}, fmt.Errorf("form %s: %w", formID, models.ErrNotFound)
	}
	return form, nil
}

func cleanFields(f models.FormFields) (models.FormFields, error) {
	f.Location = sanitize.Text(f.Location)
	f.PaymentTerm = sanitize.Text(f.PaymentTerm)
	f.AdminCodes = sanitize.List(f.AdminCodes)

	var problems []string
	if f.Location == "" {
		problems = append(problems, "location is required")
	}
	if f.ExpectedDate.IsZero() {
		problems = append(problems, "expected date is required")
	}
	if len(f.AdminCodes) == 0 {
		problems = append(problems, "at least one admin code is required")
	}
	if err := validateRange(f.Fees); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return f, fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(problems, "; "))
	}
	return f, nil
}

func validateAdminFields(f models.AdminFields) error {
	if f.Fees == nil {
		return nil
	}
	if err := validateRange(*f.Fees); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}
	return nil
}

func validateRange(r models.FeeRange) error {
	if r.From < 0 || r.To < r.From {
		return fmt.Errorf("invalid fee range %d-%d", r.From, r.To)
	}
	return nil
}
