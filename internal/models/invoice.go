package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы счёта.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice представляет счёт пользователя для одного из его заказчиков.
//
// Number уникален в паре (user_id, number), когда задан. Денежные поля
// хранятся с двумя знаками; для зафиксированного счёта выполняется
// subtotal + tax == total после квантования.
type Invoice struct {
	ID          int64               `json:"id"`
	UserID      int64               `json:"user_id"`
	ClientID    int64               `json:"client_id"`
	Number      *string             `json:"number,omitempty"`
	Status      string              `json:"status"`
	IssuedDate  *time.Time          `json:"issued_date,omitempty"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
	Subtotal    decimal.NullDecimal `json:"subtotal,omitempty"`
	Tax         decimal.NullDecimal `json:"tax,omitempty"`
	Total       decimal.NullDecimal `json:"total,omitempty"`
	Currency    string              `json:"currency"`
	PDFURL      *string             `json:"pdf_url,omitempty"`
	PaymentLink *string             `json:"payment_link,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// InvoiceItem представляет строку счёта. Amount — опциональный кэш
// произведения quantity * unit_price, оба операнда квантуются до умножения.
type InvoiceItem struct {
	ID          int64               `json:"id"`
	InvoiceID   int64               `json:"invoice_id"`
	Description string              `json:"description"`
	Quantity    decimal.Decimal     `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Amount      decimal.NullDecimal `json:"amount,omitempty"`
}

// InvoiceDetails объединяет счёт со строками для ответов API.
type InvoiceDetails struct {
	Invoice
	Items []InvoiceItem `json:"items"`
}

// DummyInvoiceItem используется для приёма строки счёта из JSON-запроса.
type DummyInvoiceItem struct {
	Description string           `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// DummyInvoice используется для приёма данных счёта из JSON-запроса.
// Даты приходят строками в формате 2006-01-02, чтобы их можно было
// валидировать и парсить вручную.
//
// IdempotencyKey может прийти в теле или в заголовке Idempotency-Key;
// значение из тела имеет приоритет.
type DummyInvoice struct {
	ClientID          int64              `json:"client_id" validate:"required"`
	ExtractionID      *int64             `json:"extraction_id,omitempty"`
	Number            *string            `json:"number,omitempty" validate:"omitempty,max=100"`
	Status            *string            `json:"status,omitempty" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	IssuedDate        *string            `json:"issued_date,omitempty"`
	DueDate           *string            `json:"due_date,omitempty"`
	Currency          *string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Subtotal          *decimal.Decimal   `json:"subtotal,omitempty"`
	Tax               *decimal.Decimal   `json:"tax,omitempty"`
	Total             *decimal.Decimal   `json:"total,omitempty"`
	Items             []DummyInvoiceItem `json:"items,omitempty" validate:"omitempty,dive"`
	IdempotencyKey    *string            `json:"idempotency_key,omitempty"`
	GeneratePDF       bool               `json:"generate_pdf,omitempty"`
	CreatePaymentLink bool               `json:"create_payment_link,omitempty"`
	PaymentProvider   *string            `json:"payment_provider,omitempty" validate:"omitempty,oneof=paystack stripe"`
	CallbackURL       *string            `json:"callback_url,omitempty" validate:"omitempty,url"`
}

// DummyInvoiceUpdate используется для обновления счёта. Непереданные поля
// не меняются; переданный список строк заменяет прежние целиком
// (удалить все — вставить заново, частичных правок строк нет).
type DummyInvoiceUpdate struct {
	Number            *string            `json:"number,omitempty" validate:"omitempty,max=100"`
	Status            *string            `json:"status,omitempty" validate:"omitempty,oneof=draft sent paid overdue cancelled"`
	IssuedDate        *string            `json:"issued_date,omitempty"`
	DueDate           *string            `json:"due_date,omitempty"`
	Currency          *string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	Subtotal          *decimal.Decimal   `json:"subtotal,omitempty"`
	Tax               *decimal.Decimal   `json:"tax,omitempty"`
	Total             *decimal.Decimal   `json:"total,omitempty"`
	Items             *[]DummyInvoiceItem `json:"items,omitempty" validate:"omitempty,dive"`
	GeneratePDF       bool               `json:"generate_pdf,omitempty"`
	CreatePaymentLink bool               `json:"create_payment_link,omitempty"`
	PaymentProvider   *string            `json:"payment_provider,omitempty" validate:"omitempty,oneof=paystack stripe"`
	CallbackURL       *string            `json:"callback_url,omitempty" validate:"omitempty,url"`
}

// InvoiceFilter описывает параметры выборки списка счетов.
type InvoiceFilter struct {
	Status   *string
	ClientID *int64
	DueFrom  *time.Time
	DueTo    *time.Time
	Cursor   *int64
	Limit    int
	Offset   int
}

// ReminderInfo — данные для письма-напоминания о счёте со сроком оплаты.
type ReminderInfo struct {
	InvoiceID   int64           `json:"invoice_id"`
	Number      *string         `json:"number,omitempty"`
	ClientName  string          `json:"client_name"`
	ClientEmail string          `json:"client_email"`
	OwnerEmail  string          `json:"owner_email"`
	OwnerName   *string         `json:"owner_name,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	DueDate     time.Time       `json:"due_date"`
}
