package models

import "time"

// IdempotencyKey связывает клиентский ключ с созданным ресурсом.
// Запись появляется только после того, как ресурс надёжно зафиксирован;
// уникальность пары (user_id, key) обеспечивает хранилище.
type IdempotencyKey struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Key          string    `json:"key"`
	ResourceType string    `json:"resource_type"` // например, "invoice"
	ResourceID   int64     `json:"resource_id"`
	CreatedAt    time.Time `json:"created_at"`
}
