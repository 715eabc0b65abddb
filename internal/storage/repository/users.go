package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/invoiq/invoiq/internal/models"
)

const userColumns = `id, email, full_name, password_hash, is_active, is_verified,
	      verification_token, verification_expires, business_name, business_address,
	      is_pro, subscription_status, subscription_provider, subscription_provider_id,
	      subscription_start_date, subscription_end_date, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var verificationExpires, subStart, subEnd sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive,
		&u.IsVerified, &u.VerificationToken, &verificationExpires, &u.BusinessName,
		&u.BusinessAddress, &u.IsPro, &u.SubscriptionStatus, &u.SubscriptionProvider,
		&u.SubscriptionProviderID, &subStart, &subEnd, &u.CreatedAt); err != nil {
		return nil, err
	}
	if verificationExpires.Valid {
		u.VerificationExpires = &verificationExpires.Time
	}
	if subStart.Valid {
		u.SubscriptionStartDate = &subStart.Time
	}
	if subEnd.Valid {
		u.SubscriptionEndDate = &subEnd.Time
	}
	return u, nil
}

// RegisterUser сохраняет нового пользователя и возвращает его ID.
// Повторная регистрация на тот же email возвращает ErrConflict.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int64
	query := `INSERT INTO users (email, full_name, password_hash, is_active, is_verified,
			      verification_token, verification_expires)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.FullName, user.PasswordHash, user.IsActive, user.IsVerified,
		user.VerificationToken, user.VerificationExpires).Scan(&newID); err != nil {
		return 0, translateErr(op, err)
	}
	return newID, nil
}

// GetUserByEmail возвращает пользователя по его email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, translateErr(op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его ID.
func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, translateErr(op, err)
	}
	return u, nil
}

// GetUserBySubscriptionProviderID возвращает пользователя по
// идентификатору подписки у провайдера.
func (s *Storage) GetUserBySubscriptionProviderID(ctx context.Context, providerID string) (*models.User, error) {
	const op = "storage.GetUserBySubscriptionProviderID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE subscription_provider_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, providerID))
	if err != nil {
		return nil, translateErr(op, err)
	}
	return u, nil
}

// VerifyUserEmail подтверждает email по токену подтверждения.
// Просроченный или неизвестный токен даёт ErrNotFound.
func (s *Storage) VerifyUserEmail(ctx context.Context, token string) error {
	const op = "storage.VerifyUserEmail"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_verified = TRUE,
			      verification_token = NULL,
			      verification_expires = NULL
			  WHERE verification_token = $1
			    AND verification_expires > NOW()`
	res, err := s.DB.ExecContext(ctx, query, token)
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

// SetVerificationToken записывает новый токен подтверждения для пользователя.
func (s *Storage) SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	const op = "storage.SetVerificationToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET verification_token = $1,
			      verification_expires = $2
			  WHERE id = $3`
	res, err := s.DB.ExecContext(ctx, query, token, expires, userID)
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

// ActivateProSubscription включает pro-подписку пользователя.
// Повторный вызов с тем же providerRef идемпотентен на уровне сервиса,
// здесь выполняется безусловное обновление.
func (s *Storage) ActivateProSubscription(ctx context.Context, userID int64,
	provider, providerRef string, start, end time.Time) error {
	const op = "storage.ActivateProSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_pro = TRUE,
			      subscription_status = 'active',
			      subscription_provider = $1,
			      subscription_provider_id = $2,
			      subscription_start_date = $3,
			      subscription_end_date = $4
			  WHERE id = $5`
	res, err := s.DB.ExecContext(ctx, query, provider, providerRef, start, end, userID)
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

// CancelProSubscription отменяет pro-подписку пользователя.
// Флаг is_pro сохраняется до конца оплаченного периода.
func (s *Storage) CancelProSubscription(ctx context.Context, userID int64) error {
	const op = "storage.CancelProSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET subscription_status = 'cancelled'
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, userID)
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

// DeactivateProSubscription полностью гасит подписку по событию
// провайдера: снимается флаг pro, оплаченный период обрывается сейчас.
func (s *Storage) DeactivateProSubscription(ctx context.Context, userID int64) error {
	const op = "storage.DeactivateProSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_pro = FALSE,
			      subscription_status = 'cancelled',
			      subscription_end_date = NOW()
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, userID)
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

// ExpireLapsedSubscriptions снимает флаг pro у пользователей, чей
// оплаченный период закончился. Возвращает число затронутых строк.
func (s *Storage) ExpireLapsedSubscriptions(ctx context.Context) (int64, error) {
	const op = "storage.ExpireLapsedSubscriptions"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET is_pro = FALSE,
			      subscription_status = 'expired'
			  WHERE is_pro = TRUE
			    AND subscription_end_date < NOW()`
	res, err := s.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, translateErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
