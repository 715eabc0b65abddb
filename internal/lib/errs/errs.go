// Package errs определяет доменные ошибки сервисного слоя.
// Обработчики транслируют их в HTTP-статусы: NotFound -> 404, Conflict -> 409,
// Validation -> 422, Unauthorized -> 401, Upstream -> 502, RateLimited -> 429.
package errs

import "errors"

var (
	// ErrNotFound — ресурс отсутствует или принадлежит другому пользователю.
	// Эти два случая намеренно не различаются, чтобы не раскрывать чужие данные.
	ErrNotFound = errors.New("not found")
	// ErrConflict — дубликат номера счёта или повтор idempotency-ключа без ресурса.
	ErrConflict = errors.New("conflict")
	// ErrValidation — данные запроса не проходят бизнес-проверку.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized — невалидные учётные данные или неподтверждённая почта.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream — ошибка внешнего сервиса (платёжный провайдер, экстрактор).
	ErrUpstream = errors.New("upstream failure")
	// ErrRateLimited — превышена частота запросов к дорогой операции.
	ErrRateLimited = errors.New("rate limited")
)
