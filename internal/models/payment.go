package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы платежа.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// Типы платежа: подписка привязана к пользователю, оплата счёта — к счёту.
const (
	PaymentTypeSubscription = "subscription"
	PaymentTypeInvoice      = "invoice"
)

// Payment представляет платёж у внешнего провайдера. Для подписки заполнен
// UserID, для оплаты счёта — InvoiceID.
type Payment struct {
	ID          int64           `json:"id"`
	UserID      *int64          `json:"user_id,omitempty"`
	InvoiceID   *int64          `json:"invoice_id,omitempty"`
	PaymentType string          `json:"payment_type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Provider    string          `json:"provider"`
	ProviderRef string          `json:"provider_ref"`
	Status      string          `json:"status"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DummySubscriptionCreate используется для приёма запроса на создание
// платёжной ссылки pro-подписки.
type DummySubscriptionCreate struct {
	Provider    string  `json:"provider,omitempty" validate:"omitempty,oneof=paystack stripe"`
	Currency    string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	CallbackURL *string `json:"callback_url,omitempty" validate:"omitempty,url"`
}

// DummySubscriptionVerify используется для приёма запроса на проверку оплаты.
type DummySubscriptionVerify struct {
	Reference string `json:"reference" validate:"required"`
	Provider  string `json:"provider,omitempty" validate:"omitempty,oneof=paystack stripe"`
}
