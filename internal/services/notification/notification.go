// Package services вычисляет, какие действия ждут человека: открытые запросы
// на активацию плана, наступившие напоминания об оплате и непрочитанные уведомления.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/month"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

// Dashboard: сводка для главной страницы пользователя.
type Dashboard struct {
	User                models.User           `json:"user"`
	Unread              []models.Notification `json:"unread"`
	DueReminders        int                   `json:"due_reminders"`
	OpenPaymentRequests int                   `json:"open_payment_requests"`
}

// NotificationService реализует чтение и закрытие уведомлений.
type NotificationService struct {
	store storage.TxStore
	clock clock.Clock
	log   *slog.Logger
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(store storage.TxStore, clk clock.Clock, log *slog.Logger) *NotificationService {
	return &NotificationService{
		store: store,
		clock: clk,
		log:   log,
	}
}

// ReminderDue сообщает, что по заявке пора напомнить об оплате.
func ReminderDue(f models.Form, today time.Time) bool {
	return !f.Deleted && f.PaymentReminder && !f.ReminderNotified && month.OnOrBefore(f.ExpectedDate, today)
}

// OpenPaymentRequests возвращает необработанные запросы, новые первыми.
func (s *NotificationService) OpenPaymentRequests(ctx context.Context, session models.Session) ([]models.AdminNotification, error) {
	const op = "notification.OpenPaymentRequests"
	if session.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	list, err := s.store.ListAdminNotifications(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// DuePaymentReminders возвращает заявки с наступившим напоминанием.
// Фирма получает свои заявки, администратор заявки со своим кодом.
func (s *NotificationService) DuePaymentReminders(ctx context.Context, session models.Session) ([]models.Form, error) {
	const op = "notification.DuePaymentReminders"

	scope := models.SwitchRole(session.Role,
		func() formsQuery {
			return func() ([]models.Form, error) {
				return s.store.ListForms(ctx, storage.FormFilter{OwnerID: session.UserID})
			}
		},
		func() formsQuery {
			return func() ([]models.Form, error) { return nil, nil }
		},
		func() formsQuery {
			return func() ([]models.Form, error) { return s.adminForms(ctx, session.UserID) }
		},
	)
	forms, err := scope()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	today := s.clock.Now()
	due := make([]models.Form, 0, len(forms))
	for _, f := range forms {
		if ReminderDue(f, today) {
			due = append(due, f)
		}
	}
	return due, nil
}

type formsQuery func() ([]models.Form, error)

// DismissReminder навсегда закрывает напоминание по заявке.
func (s *NotificationService) DismissReminder(ctx context.Context, session models.Session, formID string) (models.Form, error) {
	const op = "notification.DismissReminder"

	var form models.Form
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		if form, err = tx.GetForm(ctx, formID); err != nil {
			return err
		}
		if form.Deleted {
			return models.ErrNotFound
		}
		allowed, err := s.canDismiss(ctx, tx, session, form)
		if err != nil {
			return err
		}
		if !allowed {
			return models.ErrForbidden
		}
		if form.ReminderNotified {
			return nil
		}
		form.ReminderNotified = true
		form.UpdatedAt = s.clock.Now().UTC()
		form, err = tx.UpdateForm(ctx, form)
		return err
	})
	if err != nil {
		return models.Form{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment reminder dismissed", slog.String("op", op), slog.String("form_id", formID))
	return form, nil
}

func (s *NotificationService) canDismiss(ctx context.Context, tx storage.Store, session models.Session, form models.Form) (bool, error) {
	var adminCode string
	if session.Role == models.RoleAdmin {
		admin, err := tx.GetUser(ctx, session.UserID)
		if err != nil {
			return false, err
		}
		adminCode = admin.AdminCode
	}
	return models.SwitchRole(session.Role,
		func() bool { return form.CreatedByUserID == session.UserID },
		func() bool { return false },
		func() bool { return form.MatchesAdminCode(adminCode) || form.CreatedByUserID == session.UserID },
	), nil
}

// Notifications возвращает ленту уведомлений пользователя, новые первыми.
func (s *NotificationService) Notifications(ctx context.Context, session models.Session) ([]models.Notification, error) {
	const op = "notification.Notifications"
	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list := slices.Clone(user.Notifications)
	slices.Reverse(list)
	return list, nil
}

// MarkNotificationsRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkNotificationsRead(ctx context.Context, session models.Session) error {
	const op = "notification.MarkNotificationsRead"
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		user, err := tx.GetUser(ctx, session.UserID)
		if err != nil {
			return err
		}
		if len(user.Unread()) == 0 {
			return nil
		}
		_, err = tx.UpdateUser(ctx, user.WithNotificationsRead())
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Dashboard собирает сводку пользователя.
func (s *NotificationService) Dashboard(ctx context.Context, session models.Session) (Dashboard, error) {
	const op = "notification.Dashboard"

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("%s: %w", op, err)
	}
	due, err := s.DuePaymentReminders(ctx, session)
	if err != nil {
		return Dashboard{}, fmt.Errorf("%s: %w", op, err)
	}
	d := Dashboard{
		User:         user,
		Unread:       user.Unread(),
		DueReminders: len(due),
	}
	if session.Role == models.RoleAdmin {
		open, err := s.store.ListAdminNotifications(ctx, true)
		if err != nil {
			return Dashboard{}, fmt.Errorf("%s: %w", op, err)
		}
		d.OpenPaymentRequests = len(open)
	}
	return d, nil
}

func (s *NotificationService) adminForms(ctx context.Context, adminID string) ([]models.Form, error) {
	admin, err := s.store.GetUser(ctx, adminID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListForms(ctx, storage.FormFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]models.Form, 0, len(all))
	for _, f := range all {
		if f.MatchesAdminCode(admin.AdminCode) {
			out = append(out, f)
		}
	}
	return out, nil
}
