// Package sender отправляет письма из очередей напоминаний и
// подтверждения почты через SMTP.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/lib/smtp"
	"github.com/invoiq/invoiq/internal/models"
)

// Service читает сообщения очередей и отправляет письма.
type Service struct {
	transport   smtp.TransportInterface
	frontendURL string
	log         *slog.Logger
}

// New создает новый экземпляр Service. frontendURL используется для
// ссылок подтверждения почты.
func New(transport smtp.TransportInterface, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		transport:   transport,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// SendInvoiceReminder отправляет заказчику напоминание о счёте,
// срок оплаты которого наступает завтра.
func (s *Service) SendInvoiceReminder(body []byte) error {
	const op = "sender.SendInvoiceReminder"

	var message models.ReminderInfo
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal reminder message", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	number := "your invoice"
	if message.Number != nil {
		number = "invoice " + *message.Number
	}
	subject := fmt.Sprintf("Payment reminder: %s is due tomorrow", number)
	bodyText := fmt.Sprintf(
		"Hello %s,\n\nThis is a friendly reminder that %s for %s %s is due on %s.\n\nIf you have already paid, please disregard this message.\n\nBest regards,\n%s",
		message.ClientName, number, message.Total.StringFixed(2), message.Currency,
		message.DueDate.Format("2006-01-02"), s.senderName(&message))

	return s.sendEmail([]string{message.ClientEmail}, subject, bodyText)
}

func (s *Service) senderName(message *models.ReminderInfo) string {
	if message.OwnerName != nil && *message.OwnerName != "" {
		return *message.OwnerName
	}
	return message.OwnerEmail
}

// SendVerificationEmail отправляет пользователю ссылку подтверждения почты.
func (s *Service) SendVerificationEmail(body []byte) error {
	const op = "sender.SendVerificationEmail"

	var message models.VerificationEmail
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal verification message", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	name := message.Email
	if message.FullName != nil && *message.FullName != "" {
		name = *message.FullName
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, message.Token)
	subject := "Confirm your email address"
	bodyText := fmt.Sprintf(
		"Hello %s,\n\nPlease confirm your email address by following the link below:\n\n%s\n\nThe link is valid for 24 hours.",
		name, link)

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.From(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.From()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
