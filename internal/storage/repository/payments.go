package repository

import (
	"context"
	"fmt"

	"github.com/invoiq/invoiq/internal/models"
)

const paymentColumns = `id, user_id, invoice_id, payment_type, amount, currency,
	      provider, provider_ref, status, description, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.InvoiceID, &p.PaymentType, &p.Amount,
		&p.Currency, &p.Provider, &p.ProviderRef, &p.Status, &p.Description,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePayment сохраняет новый платёж и возвращает его ID.
// Повторная ссылка провайдера даёт ErrConflict.
func (s *Storage) CreatePayment(ctx context.Context, payment models.Payment) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO payments (user_id, invoice_id, payment_type, amount, currency,
			      provider, provider_ref, status, description)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		payment.UserID, payment.InvoiceID, payment.PaymentType, payment.Amount,
		payment.Currency, payment.Provider, payment.ProviderRef, payment.Status,
		payment.Description).Scan(&newID); err != nil {
		return 0, translateErr(op, err)
	}
	return newID, nil
}

// GetPaymentByProviderRef находит платёж по ссылке провайдера.
func (s *Storage) GetPaymentByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	const op = "storage.GetPaymentByProviderRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_ref = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, providerRef))
	if err != nil {
		return nil, translateErr(op, err)
	}
	return p, nil
}

// UpdatePaymentStatus меняет статус платежа.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, paymentID int64, status string) error {
	const op = "storage.UpdatePaymentStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := s.DB.ExecContext(ctx, query, status, paymentID); err != nil {
		return translateErr(op, err)
	}
	return nil
}

// ListPaymentsByUser возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Payment, error) {
	const op = "storage.ListPaymentsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE user_id = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, translateErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
