// Package reminder реализует ручную отправку напоминания о счёте:
// черновик переводится в статус sent, задача уходит в очередь брокера.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/metrics"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/rabbitmq"
)

// Repository описывает методы хранилища, нужные отправке напоминания.
type Repository interface {
	GetInvoiceWithItems(ctx context.Context, userID, invoiceID int64) (*models.InvoiceDetails, error)
	GetClient(ctx context.Context, userID, clientID int64) (*models.Client, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	UpdateInvoiceWithItems(ctx context.Context, inv models.Invoice, items *[]models.InvoiceItem) error
}

// Publisher публикует сообщения в обменник событий.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Cache описывает инвалидацию кэша счетов.
type Cache interface {
	Invalidate(key string) error
}

// Service реализует бизнес-логику напоминаний о счетах.
type Service struct {
	repo      Repository
	publisher Publisher
	cache     Cache
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, publisher Publisher, cache Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, cache: cache, log: log}
}

// Send ставит напоминание по счёту в очередь. Счёт должен принадлежать
// пользователю, а у заказчика должна быть почта. Черновик при этом
// переводится в статус sent, остальные статусы не меняются.
func (s *Service) Send(ctx context.Context, userID, invoiceID int64) error {
	const op = "services.reminder.Send"

	details, err := s.repo.GetInvoiceWithItems(ctx, userID, invoiceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	client, err := s.repo.GetClient(ctx, userID, details.ClientID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if client.Email == nil || *client.Email == "" {
		return fmt.Errorf("%s: client has no email: %w", op, errs.ErrValidation)
	}

	owner, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if details.Status == models.InvoiceStatusDraft {
		inv := details.Invoice
		inv.Status = models.InvoiceStatusSent
		if err := s.repo.UpdateInvoiceWithItems(ctx, inv, nil); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.cache.Invalidate(fmt.Sprintf("invoice:%d:%d", userID, invoiceID)); err != nil {
			s.log.Warn("failed to invalidate invoice cache", sl.Err(err))
		}
	}

	total := decimal.Zero
	if details.Total.Valid {
		total = details.Total.Decimal
	}
	var dueDate time.Time
	if details.DueDate != nil {
		dueDate = *details.DueDate
	}

	info := models.ReminderInfo{
		InvoiceID:   invoiceID,
		Number:      details.Number,
		ClientName:  client.Name,
		ClientEmail: *client.Email,
		OwnerEmail:  owner.Email,
		OwnerName:   owner.FullName,
		Total:       total,
		Currency:    details.Currency,
		DueDate:     dueDate,
	}
	if err := s.publisher.Publish(rabbitmq.RoutingKeyReminders, info); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.RemindersQueued.Inc()
	s.log.Info("reminder queued", slog.Int64("invoice_id", invoiceID))
	return nil
}
