package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/invoiq/invoiq/internal/models"
)

const invoiceColumns = `id, user_id, client_id, number, status, issued_date, due_date,
	      subtotal, tax, total, currency, pdf_url, payment_link, created_at`

func scanInvoice(row interface{ Scan(...any) error }) (*models.Invoice, error) {
	inv := &models.Invoice{}
	var issued, due sql.NullTime
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.ClientID, &inv.Number, &inv.Status,
		&issued, &due, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.Currency,
		&inv.PDFURL, &inv.PaymentLink, &inv.CreatedAt); err != nil {
		return nil, err
	}
	if issued.Valid {
		inv.IssuedDate = &issued.Time
	}
	if due.Valid {
		inv.DueDate = &due.Time
	}
	return inv, nil
}

func insertInvoiceItems(ctx context.Context, tx *sql.Tx, invoiceID int64, items []models.InvoiceItem) error {
	query := `INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, amount)
			  VALUES ($1, $2, $3, $4, $5)`
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, query,
			invoiceID, it.Description, it.Quantity, it.UnitPrice, it.Amount); err != nil {
			return err
		}
	}
	return nil
}

// CreateInvoiceWithItems сохраняет счёт вместе со строками в одной
// транзакции и возвращает ID счёта. Конфликт номера даёт ErrConflict.
func (s *Storage) CreateInvoiceWithItems(ctx context.Context,
	inv models.Invoice, items []models.InvoiceItem) (int64, error) {
	const op = "storage.CreateInvoiceWithItems"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newID int64
	query := `INSERT INTO invoices (user_id, client_id, number, status, issued_date,
			      due_date, subtotal, tax, total, currency)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id;`
	if err = tx.QueryRowContext(ctx, query,
		inv.UserID, inv.ClientID, inv.Number, inv.Status, inv.IssuedDate, inv.DueDate,
		inv.Subtotal, inv.Tax, inv.Total, inv.Currency).Scan(&newID); err != nil {
		return 0, translateErr(op, err)
	}
	if err = insertInvoiceItems(ctx, tx, newID, items); err != nil {
		return 0, translateErr(op, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetInvoiceWithItems возвращает счёт пользователя вместе со строками.
func (s *Storage) GetInvoiceWithItems(ctx context.Context, userID, invoiceID int64) (*models.InvoiceDetails, error) {
	const op = "storage.GetInvoiceWithItems"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND user_id = $2`
	inv, err := scanInvoice(s.DB.QueryRowContext(ctx, query, invoiceID, userID))
	if err != nil {
		return nil, translateErr(op, err)
	}

	items, err := s.listInvoiceItems(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.InvoiceDetails{Invoice: *inv, Items: items}, nil
}

func (s *Storage) listInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error) {
	query := `SELECT id, invoice_id, description, quantity, unit_price, amount
			  FROM invoice_items
			  WHERE invoice_id = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	items := []models.InvoiceItem{}
	for rows.Next() {
		var it models.InvoiceItem
		if err = rows.Scan(&it.ID, &it.InvoiceID, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListInvoices возвращает счета пользователя по фильтру в порядке
// возрастания id, что согласуется с курсорной пагинацией id > cursor.
func (s *Storage) ListInvoices(ctx context.Context, userID int64, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	const op = "storage.ListInvoices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1`
	args := []any{userID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		query += ` AND client_id = $` + strconv.Itoa(len(args))
	}
	if filter.DueFrom != nil {
		args = append(args, *filter.DueFrom)
		query += ` AND due_date >= $` + strconv.Itoa(len(args))
	}
	if filter.DueTo != nil {
		args = append(args, *filter.DueTo)
		query += ` AND due_date <= $` + strconv.Itoa(len(args))
	}
	if filter.Cursor != nil {
		args = append(args, *filter.Cursor)
		query += ` AND id > $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateInvoiceWithItems перезаписывает поля счёта и, если items не nil,
// заменяет строки целиком в той же транзакции.
func (s *Storage) UpdateInvoiceWithItems(ctx context.Context,
	inv models.Invoice, items *[]models.InvoiceItem) error {
	const op = "storage.UpdateInvoiceWithItems"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE invoices
			  SET number = $1, status = $2, issued_date = $3, due_date = $4,
			      subtotal = $5, tax = $6, total = $7, currency = $8
			  WHERE id = $9 AND user_id = $10`
	res, err := tx.ExecContext(ctx, query,
		inv.Number, inv.Status, inv.IssuedDate, inv.DueDate,
		inv.Subtotal, inv.Tax, inv.Total, inv.Currency, inv.ID, inv.UserID)
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

	if items != nil {
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err = insertInvoiceItems(ctx, tx, inv.ID, *items); err != nil {
			return translateErr(op, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteInvoice удаляет счёт пользователя; строки удаляются каскадно.
func (s *Storage) DeleteInvoice(ctx context.Context, userID, invoiceID int64) error {
	const op = "storage.DeleteInvoice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM invoices WHERE id = $1 AND user_id = $2`
	res, err := s.DB.ExecContext(ctx, query, invoiceID, userID)
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

// CountInvoicesByIssuedDate считает счета пользователя, выставленные
// в указанную дату. Используется при генерации очередного номера.
func (s *Storage) CountInvoicesByIssuedDate(ctx context.Context, userID int64, issued time.Time) (int, error) {
	const op = "storage.CountInvoicesByIssuedDate"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM invoices WHERE user_id = $1 AND issued_date = $2`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userID, issued).Scan(&count); err != nil {
		return 0, translateErr(op, err)
	}
	return count, nil
}

// ExistsInvoiceNumber проверяет, занят ли номер счёта у пользователя.
func (s *Storage) ExistsInvoiceNumber(ctx context.Context, userID int64, number string) (bool, error) {
	const op = "storage.ExistsInvoiceNumber"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM invoices WHERE user_id = $1 AND number = $2)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, number).Scan(&exists); err != nil {
		return false, translateErr(op, err)
	}
	return exists, nil
}

// SetInvoicePDFURL записывает адрес сгенерированного PDF.
func (s *Storage) SetInvoicePDFURL(ctx context.Context, invoiceID int64, pdfURL string) error {
	const op = "storage.SetInvoicePDFURL"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices SET pdf_url = $1 WHERE id = $2`
	if _, err := s.DB.ExecContext(ctx, query, pdfURL, invoiceID); err != nil {
		return translateErr(op, err)
	}
	return nil
}

// SetInvoicePaymentLink записывает платёжную ссылку счёта.
func (s *Storage) SetInvoicePaymentLink(ctx context.Context, invoiceID int64, link string) error {
	const op = "storage.SetInvoicePaymentLink"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices SET payment_link = $1 WHERE id = $2`
	if _, err := s.DB.ExecContext(ctx, query, link, invoiceID); err != nil {
		return translateErr(op, err)
	}
	return nil
}

// UpdateInvoiceStatus меняет статус счёта без проверки владельца.
// Вызывается обработчиком вебхуков, где владелец устанавливается
// по ссылке платежа, а не по токену.
func (s *Storage) UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status string) error {
	const op = "storage.UpdateInvoiceStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices SET status = $1 WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, status, invoiceID)
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

// FindInvoicesDueTomorrow возвращает данные для напоминаний по
// отправленным счетам, срок оплаты которых наступает завтра.
func (s *Storage) FindInvoicesDueTomorrow(ctx context.Context) ([]models.ReminderInfo, error) {
	const op = "storage.FindInvoicesDueTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT i.id, i.number, c.name, c.email, u.email, u.full_name,
			      i.total, i.currency, i.due_date
			  FROM invoices i
			  JOIN clients c ON c.id = i.client_id
			  JOIN users u ON u.id = i.user_id
			  WHERE i.status = 'sent'
			    AND i.due_date = CURRENT_DATE + INTERVAL '1 day'
			    AND i.total IS NOT NULL
			    AND c.email IS NOT NULL;`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, translateErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []models.ReminderInfo
	for rows.Next() {
		var r models.ReminderInfo
		if err = rows.Scan(&r.InvoiceID, &r.Number, &r.ClientName, &r.ClientEmail,
			&r.OwnerEmail, &r.OwnerName, &r.Total, &r.Currency, &r.DueDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
