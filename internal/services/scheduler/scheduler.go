// Package services периодически рассылает владельцам заявок напоминания
// об оплате по наступившим датам аудита.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/clock"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	notifservice "github.com/magabrotheeeer/audit-coordinator/internal/services/notification"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

// Mailer отправляет сводку напоминаний владельцу заявок.
type Mailer interface {
	ReminderDigest(ctx context.Context, owner models.User, forms []models.Form)
}

// SchedulerService находит заявки с наступившим напоминанием. Признак
// reminderNotified не меняется: закрыть напоминание может только пользователь.
type SchedulerService struct {
	store storage.Store
	mail  Mailer
	clock clock.Clock
	log   *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(store storage.Store, mail Mailer, clk clock.Clock, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		store: store,
		mail:  mail,
		clock: clk,
		log:   log,
	}
}

// Run выполняет RunOnce сразу и затем каждые interval, пока не отменён ctx.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("failed to send payment reminders", sl.Err(err))
	}
}

// RunOnce рассылает по одному письму каждому владельцу с наступившими
// напоминаниями и возвращает число отправленных писем.
func (s *SchedulerService) RunOnce(ctx context.Context) (int, error) {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	forms, err := s.store.ListForms(ctx, storage.FormFilter{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	today := s.clock.Now()
	var owners []string
	due := make(map[string][]models.Form)
	for _, f := range forms {
		if !notifservice.ReminderDue(f, today) {
			continue
		}
		if _, ok := due[f.CreatedByUserID]; !ok {
			owners = append(owners, f.CreatedByUserID)
		}
		due[f.CreatedByUserID] = append(due[f.CreatedByUserID], f)
	}
	if len(owners) == 0 {
		log.Info("no due payment reminders found")
		return 0, nil
	}

	sent := 0
	for _, id := range owners {
		owner, err := s.store.GetUser(ctx, id)
		if err != nil {
			log.Error("failed to load form owner", slog.String("user_id", id), sl.Err(err))
			continue
		}
		s.mail.ReminderDigest(ctx, owner, due[id])
		sent++
	}
	log.Info("payment reminders published", slog.Int("owners", sent))
	return sent, nil
}
