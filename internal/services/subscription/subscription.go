// Package services реализует учёт записей подписки и активацию платных планов
// по подтверждению оплаты, которое проверяет администратор.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/month"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/metrics"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/proofstore"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

// Mailer: письма, которые отправляет сервис подписок.
type Mailer interface {
	PaymentProof(ctx context.Context, user models.User, plan models.Plan, proof proofstore.Blob)
	PlanDecision(ctx context.Context, user models.User, plan models.Plan, approved bool, expiry *time.Time)
}

// CanCreateEntry сообщает, может ли пользователь потратить ещё одну запись.
func CanCreateEntry(user models.User) bool {
	sub := user.Subscription
	return sub.Unlimited() || sub.EntriesUsed < sub.AllowedEntries
}

// ConsumeEntry списывает одну запись. Второе значение — изменился ли счётчик.
// Безлимитная подписка не списывается; списание сверх лимита не выполняется.
func ConsumeEntry(user models.User) (models.User, bool) {
	sub := user.Subscription
	if sub.Unlimited() || sub.EntriesUsed >= sub.AllowedEntries {
		return user, false
	}
	sub.EntriesUsed++
	metrics.EntriesConsumed.Inc()
	return user.WithSubscription(sub), true
}

// SubscriptionService управляет переходами inactive -> pending -> active.
type SubscriptionService struct {
	store  storage.TxStore
	proofs proofstore.Store
	mail   Mailer
	clock  clock.Clock
	log    *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(store storage.TxStore, proofs proofstore.Store, mail Mailer, clk clock.Clock, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		store:  store,
		proofs: proofs,
		mail:   mail,
		clock:  clk,
		log:    log,
	}
}

// RequestPlanActivation сохраняет подтверждение оплаты, переводит подписку в pending
// и создаёт запрос для администраторов.
func (s *SubscriptionService) RequestPlanActivation(ctx context.Context, session models.Session, plan models.Plan, proof []byte) (models.User, error) {
	const op = "subscription.RequestPlanActivation"
	log := s.log.With(slog.String("op", op), slog.String("user_id", session.UserID))

	allowed := models.SwitchRole(session.Role,
		func() bool { return true },
		func() bool { return false },
		func() bool { return true },
	)
	if !allowed {
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if plan.Months() == 0 {
		return models.User{}, fmt.Errorf("%s: %w: unknown plan %q", op, models.ErrValidation, plan)
	}
	blob, err := proofstore.Prepare(proof)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	current, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if current.Subscription.Status == models.StatusPending {
		return models.User{}, fmt.Errorf("%s: %w", op, models.ErrPlanPending)
	}

	if err = s.proofs.Save(ctx, blob); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	var updated models.User
	err = s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		user, err := tx.GetUser(ctx, session.UserID)
		if err != nil {
			return err
		}
		if user.Subscription.Status == models.StatusPending {
			return models.ErrPlanPending
		}
		sub := user.Subscription
		sub.Status = models.StatusPending
		sub.PendingPlan = plan
		sub.PendingProof = blob.Key
		if updated, err = tx.UpdateUser(ctx, user.WithSubscription(sub)); err != nil {
			return err
		}
		return tx.CreateAdminNotification(ctx, models.AdminNotification{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			UserName:  user.Name,
			UserEmail: user.Email,
			UserRole:  user.Role,
			Plan:      plan,
			ProofKey:  blob.Key,
			CreatedAt: s.clock.Now().UTC(),
		})
	})
	if err != nil {
		if delErr := s.proofs.Delete(ctx, blob.Key); delErr != nil {
			log.Warn("failed to discard proof after failed request", sl.Err(delErr))
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PlanRequests.WithLabelValues(metrics.ResultCreated).Inc()
	log.Info("plan activation requested", slog.String("plan", string(plan)))
	s.mail.PaymentProof(ctx, updated, plan, blob)
	return updated, nil
}

// DecidePlanActivation применяет решение администратора по запросу. Повторное решение отклоняется.
func (s *SubscriptionService) DecidePlanActivation(ctx context.Context, session models.Session, notificationID string, approve bool) (models.AdminNotification, error) {
	const op = "subscription.DecidePlanActivation"
	log := s.log.With(slog.String("op", op), slog.String("notification_id", notificationID))

	if session.Role != models.RoleAdmin {
		return models.AdminNotification{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	var (
		note models.AdminNotification
		user models.User
	)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Store) error {
		var err error
		if note, err = tx.GetAdminNotification(ctx, notificationID); err != nil {
			return err
		}
		if note.Handled {
			return models.ErrAlreadyHandled
		}
		if note.UserID == session.UserID {
			return models.ErrOwnRequest
		}
		if user, err = tx.GetUser(ctx, note.UserID); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		user = decide(user, note, approve, now)
		if user, err = tx.UpdateUser(ctx, user); err != nil {
			return err
		}

		note.Handled = true
		note.HandledAt = &now
		note.HandledBy = session.UserID
		note.Approved = &approve
		note, err = tx.UpdateAdminNotification(ctx, note)
		return err
	})
	if err != nil {
		return models.AdminNotification{}, fmt.Errorf("%s: %w", op, err)
	}

	result := metrics.ResultApproved
	if !approve {
		result = metrics.ResultRejected
		if err = s.proofs.Delete(ctx, note.ProofKey); err != nil {
			log.Warn("failed to discard rejected proof", sl.Err(err))
		}
	}
	metrics.PlanRequests.WithLabelValues(result).Inc()
	log.Info("plan activation decided", slog.Bool("approved", approve), slog.String("user_id", user.ID))

	s.mail.PlanDecision(ctx, user, note.Plan, approve, user.Subscription.ExpiryDate)
	return note, nil
}

// Proof возвращает изображение подтверждения оплаты по запросу. Только для администраторов.
func (s *SubscriptionService) Proof(ctx context.Context, session models.Session, notificationID string) (proofstore.Blob, error) {
	const op = "subscription.Proof"
	if session.Role != models.RoleAdmin {
		return proofstore.Blob{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	note, err := s.store.GetAdminNotification(ctx, notificationID)
	if err != nil {
		return proofstore.Blob{}, fmt.Errorf("%s: %w", op, err)
	}
	blob, err := s.proofs.Load(ctx, note.ProofKey)
	if err != nil {
		return proofstore.Blob{}, fmt.Errorf("%s: %w", op, err)
	}
	return blob, nil
}

// decide возвращает пользователя с применённым решением.
func decide(user models.User, note models.AdminNotification, approve bool, now time.Time) models.User {
	sub := user.Subscription
	plan := sub.PendingPlan
	if plan == models.PlanFree {
		plan = note.Plan
	}
	sub.PendingPlan = models.PlanFree
	sub.PendingProof = ""

	var n models.Notification
	if approve {
		start, expiry := now, month.Add(now, plan.Months())
		sub.Status = models.StatusActive
		sub.Plan = plan
		sub.AllowedEntries = models.UnlimitedEntries
		sub.StartDate = &start
		sub.ExpiryDate = &expiry
		n = models.Notification{
			Kind:    models.NotificationSuccess,
			Message: fmt.Sprintf("План %s активирован до %s.", plan, expiry.Format("02.01.2006")),
		}
	} else {
		sub.Status = models.StatusInactive
		n = models.Notification{
			Kind:    models.NotificationWarning,
			Message: fmt.Sprintf("Запрос на активацию плана %s отклонён.", plan),
		}
	}
	n.ID = uuid.NewString()
	n.CreatedAt = now
	return user.WithSubscription(sub).WithNotification(n)
}
