// Package payment обрабатывает вебхуки платёжных провайдеров.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/paymentprovider"
)

const proPeriod = 30 * 24 * time.Hour

// Repository описывает методы хранилища для обработки вебхуков.
type Repository interface {
	GetPaymentByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
	GetUserBySubscriptionProviderID(ctx context.Context, providerID string) (*models.User, error)
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status string) error
	ActivateProSubscription(ctx context.Context, userID int64, provider, providerRef string, start, end time.Time) error
	DeactivateProSubscription(ctx context.Context, userID int64) error
	UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status string) error
}

// WebhookService проверяет подпись события и применяет его к платежу.
// Провайдеры доставляют события минимум один раз, поэтому каждая ветка
// обработчика обязана быть идемпотентной.
type WebhookService struct {
	repo    Repository
	secrets map[string]string
	log     *slog.Logger
}

// NewWebhookService создает новый экземпляр WebhookService.
// secrets содержит секреты подписи по имени провайдера.
func NewWebhookService(repo Repository, secrets map[string]string, log *slog.Logger) *WebhookService {
	return &WebhookService{
		repo:    repo,
		secrets: secrets,
		log:     log,
	}
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference        string `json:"reference"`
		SubscriptionCode string `json:"subscription_code"`
	} `json:"data"`
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
		} `json:"object"`
	} `json:"data"`
}

// ProcessEvent проверяет подпись и применяет событие. Неизвестные
// события и события без соответствующего платежа игнорируются, чтобы
// провайдер не пересылал их бесконечно.
func (s *WebhookService) ProcessEvent(ctx context.Context, provider string, body []byte, signature string) error {
	const op = "services.payment.ProcessEvent"

	if !paymentprovider.VerifySignature(provider, s.secrets[provider], body, signature) {
		return fmt.Errorf("%s: invalid webhook signature: %w", op, errs.ErrUnauthorized)
	}

	switch provider {
	case paymentprovider.Paystack:
		var event paystackEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%s: %w: %w", op, errs.ErrValidation, err)
		}
		switch event.Event {
		case "charge.success":
			return s.applySuccess(ctx, event.Data.Reference)
		case "subscription.disable":
			providerID := event.Data.SubscriptionCode
			if providerID == "" {
				providerID = event.Data.Reference
			}
			return s.applyCancel(ctx, providerID)
		default:
			s.log.Info("ignoring webhook event", slog.String("event", event.Event))
			return nil
		}
	case paymentprovider.Stripe:
		var event stripeEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%s: %w: %w", op, errs.ErrValidation, err)
		}
		switch event.Type {
		case "checkout.session.completed":
			return s.applySuccess(ctx, s.stripeReference(ctx, event))
		case "customer.subscription.deleted":
			return s.applyCancel(ctx, event.Data.Object.ID)
		default:
			s.log.Info("ignoring webhook event", slog.String("event", event.Type))
			return nil
		}
	default:
		return fmt.Errorf("%s: unknown provider %q: %w", op, provider, errs.ErrValidation)
	}
}

// stripeReference выбирает ссылку, по которой записан платёж: платежи
// через checkout хранятся по идентификатору сессии, но часть старых
// записей ссылается на client_reference_id.
func (s *WebhookService) stripeReference(ctx context.Context, event stripeEvent) string {
	if _, err := s.repo.GetPaymentByProviderRef(ctx, event.Data.Object.ID); err == nil {
		return event.Data.Object.ID
	}
	if event.Data.Object.ClientReferenceID != "" {
		return event.Data.Object.ClientReferenceID
	}
	return event.Data.Object.ID
}

func (s *WebhookService) applySuccess(ctx context.Context, reference string) error {
	const op = "services.payment.applySuccess"

	payment, err := s.repo.GetPaymentByProviderRef(ctx, reference)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Warn("webhook for unknown payment", slog.String("reference", reference))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if payment.Status == models.PaymentStatusPaid {
		s.log.Info("payment already settled", slog.Int64("payment_id", payment.ID))
		return nil
	}

	if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusPaid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch payment.PaymentType {
	case models.PaymentTypeSubscription:
		if payment.UserID == nil {
			s.log.Warn("subscription payment without user", slog.Int64("payment_id", payment.ID))
			return nil
		}
		now := time.Now().UTC()
		if err := s.repo.ActivateProSubscription(ctx, *payment.UserID,
			payment.Provider, reference, now, now.Add(proPeriod)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("activated pro subscription via webhook", slog.Int64("user_id", *payment.UserID))
	case models.PaymentTypeInvoice:
		if payment.InvoiceID == nil {
			s.log.Warn("invoice payment without invoice", slog.Int64("payment_id", payment.ID))
			return nil
		}
		if err := s.repo.UpdateInvoiceStatus(ctx, *payment.InvoiceID, models.InvoiceStatusPaid); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("marked invoice as paid via webhook", slog.Int64("invoice_id", *payment.InvoiceID))
	}
	return nil
}

// applyCancel находит пользователя по идентификатору подписки у
// провайдера и полностью гасит её. Активации, записавшие ссылку платежа
// вместо идентификатора подписки, покрываются запасным поиском платежа.
func (s *WebhookService) applyCancel(ctx context.Context, providerID string) error {
	const op = "services.payment.applyCancel"

	userID, err := s.cancelTarget(ctx, providerID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Warn("cancel webhook for unknown subscription", slog.String("provider_id", providerID))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeactivateProSubscription(ctx, userID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("deactivated pro subscription via webhook", slog.Int64("user_id", userID))
	return nil
}

func (s *WebhookService) cancelTarget(ctx context.Context, providerID string) (int64, error) {
	user, err := s.repo.GetUserBySubscriptionProviderID(ctx, providerID)
	if err == nil {
		return user.ID, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return 0, err
	}
	payment, err := s.repo.GetPaymentByProviderRef(ctx, providerID)
	if err != nil {
		return 0, err
	}
	if payment.UserID == nil {
		return 0, errs.ErrNotFound
	}
	return *payment.UserID, nil
}
