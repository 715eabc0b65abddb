package repository

import (
	"context"
	"fmt"

	"github.com/invoiq/invoiq/internal/models"
)

// GetIdempotencyKey возвращает запись ключа идемпотентности пользователя.
func (s *Storage) GetIdempotencyKey(ctx context.Context, userID int64, key string) (*models.IdempotencyKey, error) {
	const op = "storage.GetIdempotencyKey"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, key, resource_type, resource_id, created_at
			  FROM idempotency_keys
			  WHERE user_id = $1 AND key = $2`
	k := &models.IdempotencyKey{}
	if err := s.DB.QueryRowContext(ctx, query, userID, key).Scan(
		&k.ID, &k.UserID, &k.Key, &k.ResourceType, &k.ResourceID, &k.CreatedAt); err != nil {
		return nil, translateErr(op, err)
	}
	return k, nil
}

// SaveIdempotencyKey связывает ключ с созданным ресурсом. Запись делается
// только после фиксации ресурса; гонка двух одинаковых ключей даёт
// ErrConflict, который вызывающая сторона может игнорировать.
func (s *Storage) SaveIdempotencyKey(ctx context.Context, userID int64,
	key, resourceType string, resourceID int64) error {
	const op = "storage.SaveIdempotencyKey"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO idempotency_keys (user_id, key, resource_type, resource_id)
			  VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query, userID, key, resourceType, resourceID); err != nil {
		return translateErr(op, err)
	}
	return nil
}
