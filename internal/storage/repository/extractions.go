package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invoiq/invoiq/internal/models"
)

// CreateExtraction сохраняет результат извлечения и возвращает его ID.
// Структурированный результат кладётся в колонку jsonb как есть.
func (s *Storage) CreateExtraction(ctx context.Context, extraction models.Extraction) (int64, error) {
	const op = "storage.CreateExtraction"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	parsed, err := json.Marshal(extraction.Parsed)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var newID int64
	query := `INSERT INTO extractions (user_id, source_type, source_url, raw_text,
			      parsed, confidence)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id;`
	if err = s.DB.QueryRowContext(ctx, query,
		extraction.UserID, extraction.SourceType, extraction.SourceURL,
		extraction.RawText, parsed, extraction.Confidence).Scan(&newID); err != nil {
		return 0, translateErr(op, err)
	}
	return newID, nil
}

// GetExtraction возвращает извлечение по ID. Проверка владельца
// выполняется на уровне сервиса, анонимные записи владельца не имеют.
func (s *Storage) GetExtraction(ctx context.Context, extractionID int64) (*models.Extraction, error) {
	const op = "storage.GetExtraction"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, source_type, source_url, raw_text, parsed,
			      confidence, created_at
			  FROM extractions
			  WHERE id = $1`
	e := &models.Extraction{}
	var parsed []byte
	if err := s.DB.QueryRowContext(ctx, query, extractionID).Scan(
		&e.ID, &e.UserID, &e.SourceType, &e.SourceURL, &e.RawText,
		&parsed, &e.Confidence, &e.CreatedAt); err != nil {
		return nil, translateErr(op, err)
	}
	if err := json.Unmarshal(parsed, &e.Parsed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}
