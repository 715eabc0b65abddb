package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/invoiq/invoiq/internal/models"
)

// CreateClient сохраняет нового заказчика пользователя и возвращает его ID.
func (s *Storage) CreateClient(ctx context.Context, client models.Client) (int64, error) {
	const op = "storage.CreateClient"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO clients (user_id, name, email, phone, address)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		client.UserID, client.Name, client.Email, client.Phone, client.Address).Scan(&newID); err != nil {
		return 0, translateErr(op, err)
	}
	return newID, nil
}

// GetClient возвращает заказчика пользователя. Чужой или отсутствующий
// заказчик неразличимы: оба дают ErrNotFound.
func (s *Storage) GetClient(ctx context.Context, userID, clientID int64) (*models.Client, error) {
	const op = "storage.GetClient"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, name, email, phone, address
			  FROM clients
			  WHERE id = $1 AND user_id = $2`
	c := &models.Client{}
	if err := s.DB.QueryRowContext(ctx, query, clientID, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address); err != nil {
		return nil, translateErr(op, err)
	}
	return c, nil
}

// ListClients возвращает заказчиков пользователя постранично.
func (s *Storage) ListClients(ctx context.Context, userID int64, limit, offset int) ([]*models.Client, error) {
	const op = "storage.ListClients"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, name, email, phone, address
			  FROM clients
			  WHERE user_id = $1
			  ORDER BY id
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, translateErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Client
	for rows.Next() {
		var c models.Client
		if err = rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateClient перезаписывает данные заказчика пользователя.
func (s *Storage) UpdateClient(ctx context.Context, client models.Client) error {
	const op = "storage.UpdateClient"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE clients
			  SET name = $1, email = $2, phone = $3, address = $4
			  WHERE id = $5 AND user_id = $6`
	res, err := s.DB.ExecContext(ctx, query,
		client.Name, client.Email, client.Phone, client.Address, client.ID, client.UserID)
	if err != nil {
		return translateErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return translateErr(op, sql.ErrNoRows)
	}
	return nil
}

// DeleteClient удаляет заказчика пользователя; его счета удаляются каскадно.
func (s *Storage) DeleteClient(ctx context.Context, userID, clientID int64) error {
	const op = "storage.DeleteClient"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM clients WHERE id = $1 AND user_id = $2`
	res, err := s.DB.ExecContext(ctx, query, clientID, userID)
	if err != nil {
		return translateErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return translateErr(op, sql.ErrNoRows)
	}
	return nil
}
