// Package subscription содержит логику оплаты и активации pro-подписки.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/paymentprovider"
)

// Подписка продлевается помесячно, цена фиксирована на валюту.
const proPeriod = 30 * 24 * time.Hour

var (
	priceUSD = decimal.RequireFromString("29.99")
	priceNGN = decimal.RequireFromString("12000")
)

// Repository описывает методы хранилища для работы с подпиской.
type Repository interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreatePayment(ctx context.Context, payment models.Payment) (int64, error)
	GetPaymentByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status string) error
	ActivateProSubscription(ctx context.Context, userID int64, provider, providerRef string, start, end time.Time) error
	CancelProSubscription(ctx context.Context, userID int64) error
	ListPaymentsByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Payment, error)
}

// ProviderRegistry отдаёт платёжного провайдера по имени.
type ProviderRegistry interface {
	Get(name string) (paymentprovider.Provider, error)
}

// Service реализует бизнес-логику pro-подписки.
type Service struct {
	repo      Repository
	providers ProviderRegistry
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, providers ProviderRegistry, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		providers: providers,
		log:       log,
	}
}

// Link — платёжная ссылка для оформления подписки.
type Link struct {
	PaymentURL string `json:"payment_url"`
	Reference  string `json:"reference"`
}

// Status — текущее состояние подписки пользователя.
type Status struct {
	IsPro         bool       `json:"is_pro"`
	Status        *string    `json:"subscription_status,omitempty"`
	Provider      *string    `json:"subscription_provider,omitempty"`
	StartDate     *time.Time `json:"subscription_start_date,omitempty"`
	EndDate       *time.Time `json:"subscription_end_date,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
}

// Create создаёт платёжную ссылку на подписку и фиксирует платёж со
// статусом pending. Ссылка платежа хранится в provider_ref в том виде,
// в каком её знает провайдер, чтобы проверка и вебхук находили запись.
func (s *Service) Create(ctx context.Context, userID int64, req models.DummySubscriptionCreate) (*Link, error) {
	const op = "services.subscription.Create"

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsPro && user.SubscriptionStatus != nil && *user.SubscriptionStatus == "active" {
		return nil, fmt.Errorf("%s: subscription already active: %w", op, errs.ErrConflict)
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = paymentprovider.Paystack
	}
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	amount := priceUSD
	if currency != "USD" {
		amount = priceNGN
	}

	reference := fmt.Sprintf("pro_sub_%d_%d", userID, time.Now().UTC().Unix())
	callback := ""
	if req.CallbackURL != nil {
		callback = *req.CallbackURL
	}

	link, err := provider.InitializeLink(ctx, paymentprovider.LinkRequest{
		Reference:   reference,
		Amount:      amount,
		Currency:    currency,
		Email:       user.Email,
		Description: "Pro Subscription Payment",
		CallbackURL: callback,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	description := "Pro Subscription Payment"
	if _, err := s.repo.CreatePayment(ctx, models.Payment{
		UserID:      &userID,
		PaymentType: models.PaymentTypeSubscription,
		Amount:      amount,
		Currency:    currency,
		Provider:    provider.Name(),
		ProviderRef: link.Reference,
		Status:      models.PaymentStatusPending,
		Description: &description,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created subscription payment link",
		slog.Int64("user_id", userID), slog.String("provider", provider.Name()))

	return &Link{PaymentURL: link.URL, Reference: link.Reference}, nil
}

// Verify проверяет оплату у провайдера и активирует подписку на 30 дней.
// Уже оплаченный платёж повторно не проверяется.
func (s *Service) Verify(ctx context.Context, userID int64, req models.DummySubscriptionVerify) (*Status, error) {
	const op = "services.subscription.Verify"

	payment, err := s.repo.GetPaymentByProviderRef(ctx, req.Reference)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if payment.UserID == nil || *payment.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}

	if payment.Status != models.PaymentStatusPaid {
		provider, err := s.providers.Get(payment.Provider)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result, err := provider.VerifyPayment(ctx, req.Reference)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !result.Paid {
			if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusFailed); err != nil {
				s.log.Warn("failed to mark payment as failed", slog.Int64("payment_id", payment.ID))
			}
			return nil, fmt.Errorf("%s: payment not confirmed by provider: %w", op, errs.ErrValidation)
		}

		if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusPaid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		// Событие отключения подписки ссылается на её идентификатор у
		// провайдера, поэтому он предпочтительнее ссылки платежа.
		providerID := result.SubscriptionID
		if providerID == "" {
			providerID = req.Reference
		}
		now := time.Now().UTC()
		if err := s.repo.ActivateProSubscription(ctx, userID,
			payment.Provider, providerID, now, now.Add(proPeriod)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("activated pro subscription", slog.Int64("user_id", userID))
	}

	return s.Read(ctx, userID)
}

// Read возвращает текущее состояние подписки пользователя.
func (s *Service) Read(ctx context.Context, userID int64) (*Status, error) {
	const op = "services.subscription.Read"

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := &Status{
		IsPro:     user.IsPro,
		Status:    user.SubscriptionStatus,
		Provider:  user.SubscriptionProvider,
		StartDate: user.SubscriptionStartDate,
		EndDate:   user.SubscriptionEndDate,
	}
	if user.SubscriptionEndDate != nil {
		days := int(time.Until(*user.SubscriptionEndDate).Hours() / 24)
		st.DaysRemaining = &days
	}
	return st, nil
}

// Cancel отменяет подписку; оплаченный период сохраняется до конца.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	const op = "services.subscription.Cancel"

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsPro {
		return fmt.Errorf("%s: no active subscription: %w", op, errs.ErrNotFound)
	}
	if err := s.repo.CancelProSubscription(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// History возвращает платежи пользователя постранично, новые первыми.
func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]*models.Payment, error) {
	const op = "services.subscription.History"

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	payments, err := s.repo.ListPaymentsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}
