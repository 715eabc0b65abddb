// Package middlewarectx содержит HTTP middleware аутентификации,
// ограничения частоты запросов и проверки статуса пользователя,
// а также типизированные ключи контекста запроса.
package middlewarectx

// Key — типизированный ключ контекста запроса.
type Key string

const (
	// UserID — идентификатор аутентифицированного пользователя.
	UserID Key = "user_id"
	// Email — email аутентифицированного пользователя.
	Email Key = "email"
)
