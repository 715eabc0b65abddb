package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Extraction — однократно записываемый результат разбора переписки или
// скриншота. Используется позже как источник-шаблон при сборке счёта;
// его содержимое — недоверенные подсказки, а не истина.
type Extraction struct {
	ID         int64            `json:"id"`
	UserID     *int64           `json:"user_id,omitempty"` // nil — анонимное извлечение
	SourceType string           `json:"source_type"`       // screenshot | text
	SourceURL  *string          `json:"source_url,omitempty"`
	RawText    *string          `json:"raw_text,omitempty"`
	Parsed     ParsedExtraction `json:"parsed"`
	Confidence int              `json:"confidence"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ParsedExtraction — структурированный результат работы экстрактора.
type ParsedExtraction struct {
	Jobs          []string         `json:"jobs"`
	Deadlines     []string         `json:"deadlines"`
	PaymentTerms  *string          `json:"payment_terms"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      *string          `json:"currency"`
	ClientName    *string          `json:"client_name"`
	ClientEmail   *string          `json:"client_email"`
	ClientAddress *string          `json:"client_address"`
	Confidence    int              `json:"confidence"`
}
