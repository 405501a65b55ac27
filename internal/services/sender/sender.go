// Package services доставляет письма из очереди через SMTP.
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/audit-coordinator/internal/lib/sl"
	"github.com/magabrotheeeer/audit-coordinator/internal/lib/smtp"
	"github.com/magabrotheeeer/audit-coordinator/internal/metrics"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// SenderService читает models.MailMessage из тела сообщения очереди и отправляет письмо.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// HandleMessage: обработчик для rabbitmq.Consume. Ошибка означает, что
// письмо отброшено: повторной отправки нет.
func (s *SenderService) HandleMessage(body []byte) error {
	const op = "sender.HandleMessage"

	err := s.handle(body)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultFailed
	}
	metrics.MailDelivered.WithLabelValues(result).Inc()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *SenderService) handle(body []byte) error {
	var msg models.MailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	if msg.To == "" {
		return errors.New("message has no recipient")
	}
	raw, err := smtp.BuildMessage(s.transport.Sender(), msg)
	if err != nil {
		return err
	}
	return s.sendEmail(msg.To, raw)
}

func (s *SenderService) sendEmail(to string, raw []byte) error {
	log := s.log.With(slog.String("to", to))

	client, err := s.transport.Connect()
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Debug("failed to close SMTP client", sl.Err(err))
		}
	}()

	if err := client.Mail(s.transport.Sender()); err != nil {
		log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}
	if err := client.Rcpt(to); err != nil {
		log.Error("failed to set RCPT TO", sl.Err(err))
		return err
	}

	wc, err := client.Data()
	if err != nil {
		log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write(raw); err != nil {
		log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	log.Info("email sent successfully")
	return nil
}
