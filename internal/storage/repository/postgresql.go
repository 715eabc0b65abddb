// Package repository реализует хранилище данных на основе PostgreSQL
// для счетов, заказчиков, извлечений, платежей и пользователей.
// Ошибки базы переводятся в сентинели пакета errs: отсутствие строки
// становится ErrNotFound, нарушение уникальности — ErrConflict.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/invoiq/invoiq/internal/lib/errs"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы со всеми сущностями сервиса.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'invoices'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table invoices missing or query error: %w", err)
	}
	return nil
}

// isUniqueViolation определяет, является ли ошибка нарушением
// ограничения уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// translateErr переводит низкоуровневые ошибки базы в сентинели errs
// и оборачивает их именем операции.
func translateErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, errs.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
