// Package services формирует письма и передаёт их в очередь почтового сервиса.
// Доставка не гарантируется: ошибка публикации логируется и не возвращается вызывающему.
package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/metrics"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/proofstore"
)

// Publisher публикует сообщение в обменник.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Виды писем, используются как метка метрик.
const (
	KindVerification = "verification"
	KindPaymentProof = "payment_proof"
	KindPlanDecision = "plan_decision"
	KindSubmission   = "submission"
	KindWithdrawal   = "withdrawal"
	KindReminder     = "reminder"
)

const dateLayout = "02.01.2006"

// MailerService строит письма для шести почтовых сценариев.
type MailerService struct {
	pub          Publisher
	supportEmail string
	log          *slog.Logger
}

// NewMailerService создает новый экземпляр MailerService.
func NewMailerService(pub Publisher, supportEmail string, log *slog.Logger) *MailerService {
	return &MailerService{
		pub:          pub,
		supportEmail: supportEmail,
		log:          log,
	}
}

// VerificationCode отправляет код подтверждения email.
func (m *MailerService) VerificationCode(ctx context.Context, user models.User, code string) {
	m.send(ctx, KindVerification, rabbitmq.RoutingKeyMail, models.MailMessage{
		To:      user.Email,
		Subject: "Код подтверждения email",
		Text: fmt.Sprintf("Здравствуйте, %s!\n\nВаш код подтверждения: %s\n\nЕсли вы не регистрировались, просто проигнорируйте это письмо.",
			user.Name, code),
	})
}

// PaymentProof пересылает подтверждение оплаты в службу поддержки.
func (m *MailerService) PaymentProof(ctx context.Context, user models.User, plan models.Plan, proof proofstore.Blob) {
	m.send(ctx, KindPaymentProof, rabbitmq.RoutingKeyMail, models.MailMessage{
		To:      m.supportEmail,
		Subject: fmt.Sprintf("Подтверждение оплаты: %s (%s)", user.Email, plan),
		Text: fmt.Sprintf("Пользователь %s (%s, роль %s) запросил активацию плана %s.\nПодтверждение оплаты во вложении.",
			user.Name, user.Email, user.Role, plan),
		Attachment: &models.MailAttachment{
			Filename:    proof.Key,
			ContentType: proof.ContentType,
			Base64:      base64.StdEncoding.EncodeToString(proof.Data),
		},
	})
}

// PlanDecision сообщает пользователю решение по запросу активации плана.
func (m *MailerService) PlanDecision(ctx context.Context, user models.User, plan models.Plan, approved bool, expiry *time.Time) {
	msg := models.MailMessage{To: user.Email}
	if approved {
		msg.Subject = "Подписка активирована"
		msg.Text = fmt.Sprintf("Здравствуйте, %s!\n\nВаш план %s активирован.", user.Name, plan)
		if expiry != nil {
			msg.Text += fmt.Sprintf(" Действует до %s.", expiry.Format(dateLayout))
		}
	} else {
		msg.Subject = "Запрос на активацию отклонён"
		msg.Text = fmt.Sprintf("Здравствуйте, %s!\n\nЗапрос на активацию плана %s отклонён. Проверьте платёж и загрузите подтверждение повторно.",
			user.Name, plan)
	}
	m.send(ctx, KindPlanDecision, rabbitmq.RoutingKeyMail, msg)
}

// SubmissionReceived сообщает владельцу заявки об отклике студента.
func (m *MailerService) SubmissionReceived(ctx context.Context, owner models.User, form models.Form) {
	sub := form.StudentSubmission
	if sub == nil {
		return
	}
	text := fmt.Sprintf("Здравствуйте, %s!\n\nСтудент %s (%s, тел. %s) откликнулся на заявку: %s, %s.",
		owner.Name, sub.StudentName, sub.StudentEmail, sub.Phone, form.Location, form.ExpectedDate.Format(dateLayout))
	if sub.Notes != "" {
		text += "\n\nКомментарий: " + sub.Notes
	}
	m.send(ctx, KindSubmission, rabbitmq.RoutingKeyMail, models.MailMessage{
		To:      owner.Email,
		Subject: "Новый отклик на заявку",
		Text:    text,
	})
}

// SubmissionWithdrawn сообщает владельцу заявки об отзыве отклика.
func (m *MailerService) SubmissionWithdrawn(ctx context.Context, owner models.User, form models.Form, studentName string) {
	m.send(ctx, KindWithdrawal, rabbitmq.RoutingKeyMail, models.MailMessage{
		To:      owner.Email,
		Subject: "Отклик отозван",
		Text: fmt.Sprintf("Здравствуйте, %s!\n\nСтудент %s отозвал отклик на заявку: %s, %s. Заявка снова доступна.",
			owner.Name, studentName, form.Location, form.ExpectedDate.Format(dateLayout)),
	})
}

// ReminderDigest напоминает об оплате по наступившим заявкам.
func (m *MailerService) ReminderDigest(ctx context.Context, owner models.User, forms []models.Form) {
	if len(forms) == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Здравствуйте, %s!\n\nНапоминаем об оплате по заявкам:\n", owner.Name)
	for _, f := range forms {
		fmt.Fprintf(&b, "- %s, %s", f.Location, f.ExpectedDate.Format(dateLayout))
		if f.PaymentTerm != "" {
			fmt.Fprintf(&b, " (условия: %s)", f.PaymentTerm)
		}
		b.WriteString("\n")
	}
	m.send(ctx, KindReminder, rabbitmq.RoutingKeyReminder, models.MailMessage{
		To:      owner.Email,
		Subject: "Напоминание об оплате",
		Text:    b.String(),
	})
}

func (m *MailerService) send(ctx context.Context, kind, routingKey string, msg models.MailMessage) {
	const op = "mailer.send"
	log := m.log.With(slog.String("op", op), slog.String("kind", kind))

	if msg.To == "" {
		log.Warn("mail recipient is empty, message dropped")
		metrics.MailPublished.WithLabelValues(kind, metrics.ResultFailed).Inc()
		return
	}
	// Письмо уходит и после отмены запроса, вызвавшего его.
	if err := m.pub.Publish(context.WithoutCancel(ctx), routingKey, msg); err != nil {
		log.Error("failed to publish mail", sl.Err(err))
		metrics.MailPublished.WithLabelValues(kind, metrics.ResultFailed).Inc()
		return
	}
	metrics.MailPublished.WithLabelValues(kind, metrics.ResultOK).Inc()
	log.Debug("mail published", slog.String("to", msg.To))
}
