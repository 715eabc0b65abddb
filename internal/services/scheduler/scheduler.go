// Package scheduler находит счета со сроком оплаты завтра и ставит
// напоминания в очередь, а также снимает просроченные pro-подписки.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/rabbitmq"
)

// Repository описывает методы хранилища для планировщика.
type Repository interface {
	FindInvoicesDueTomorrow(ctx context.Context) ([]models.ReminderInfo, error)
	ExpireLapsedSubscriptions(ctx context.Context) (int64, error)
}

// Service периодически выполняет фоновые задачи планировщика.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// RunReminders публикует напоминания о счетах со сроком оплаты завтра.
// Первый проход выполняется сразу, затем раз в сутки до отмены контекста.
func (s *Service) RunReminders(ctx context.Context, channel *amqp.Channel) {
	s.publishReminders(ctx, channel)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishReminders(ctx, channel)
		}
	}
}

func (s *Service) publishReminders(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("looking for invoices due tomorrow")
	reminders, err := s.repo.FindInvoicesDueTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find invoices due tomorrow", sl.Err(err))
		return
	}
	if len(reminders) == 0 {
		s.log.Info("no invoices due tomorrow")
		return
	}
	s.log.Info("found invoices due tomorrow", slog.Int("count", len(reminders)))
	for _, reminder := range reminders {
		if err := rabbitmq.PublishMessage(channel,
			rabbitmq.ExchangeName, rabbitmq.RoutingKeyReminders, reminder); err != nil {
			s.log.Error("failed to publish reminder", sl.Err(err),
				slog.Int64("invoice_id", reminder.InvoiceID))
		}
	}
}

// RunSubscriptionExpiry снимает флаг pro у пользователей с истёкшим
// оплаченным периодом. Первый проход выполняется сразу, затем раз в час.
func (s *Service) RunSubscriptionExpiry(ctx context.Context) {
	s.expireSubscriptions(ctx)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireSubscriptions(ctx)
		}
	}
}

func (s *Service) expireSubscriptions(ctx context.Context) {
	n, err := s.repo.ExpireLapsedSubscriptions(ctx)
	if err != nil {
		s.log.Error("failed to expire lapsed subscriptions", sl.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("expired lapsed subscriptions", slog.Int64("count", n))
	}
}
