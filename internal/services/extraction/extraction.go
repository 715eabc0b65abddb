// Package extraction содержит логику извлечения данных о работе из
// переписки или скриншота и хранения результатов.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
)

const (
	// Не больше десяти извлечений в минуту на клиента, окно скользит
	// по счётчику в Redis, поэтому лимит общий для всех инстансов.
	rateLimit  = 10
	rateWindow = time.Minute
)

// Repository описывает контракт хранилища извлечений.
type Repository interface {
	CreateExtraction(ctx context.Context, extraction models.Extraction) (int64, error)
	GetExtraction(ctx context.Context, extractionID int64) (*models.Extraction, error)
}

// Extractor выполняет разбор текста и изображения во внешнем сервисе.
type Extractor interface {
	Extract(ctx context.Context, text string, imageBytes []byte, imageMime string) (*models.ParsedExtraction, error)
}

// Limiter считает запросы клиента в заданном окне.
type Limiter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Service реализует бизнес-логику извлечений.
type Service struct {
	repo      Repository
	extractor Extractor
	limiter   Limiter
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, extractor Extractor, limiter Limiter, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		extractor: extractor,
		limiter:   limiter,
		log:       log,
	}
}

// Extract разбирает текст и/или изображение и сохраняет результат.
// Извлечение доступно и без аутентификации, тогда userID равен nil и
// clientKey содержит адрес клиента. Недоступный счётчик лимита не
// блокирует запрос.
func (s *Service) Extract(ctx context.Context, userID *int64, clientKey, text string,
	imageBytes []byte, imageMime string) (*models.Extraction, error) {
	const op = "services.extraction.Extract"

	key := clientKey
	if userID != nil {
		key = fmt.Sprintf("user:%d", *userID)
	}
	count, err := s.limiter.Incr(ctx, "extract:"+key, rateWindow)
	if err != nil {
		s.log.Warn("rate limit counter unavailable", slog.String("key", key))
	} else if count > rateLimit {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrRateLimited)
	}

	text = strings.TrimSpace(text)
	if text == "" && len(imageBytes) == 0 {
		return nil, fmt.Errorf("%s: no text or image provided: %w", op, errs.ErrValidation)
	}

	parsed, err := s.extractor.Extract(ctx, text, imageBytes, imageMime)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrUpstream, err)
	}

	sourceType := "text"
	if len(imageBytes) > 0 {
		sourceType = "screenshot"
	}
	var rawText *string
	if text != "" {
		rawText = &text
	}
	ext := models.Extraction{
		UserID:     userID,
		SourceType: sourceType,
		RawText:    rawText,
		Parsed:     *parsed,
		Confidence: parsed.Confidence,
	}

	id, err := s.repo.CreateExtraction(ctx, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("saved extraction",
		slog.Int64("extraction_id", id), slog.String("source_type", sourceType))

	saved, err := s.repo.GetExtraction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// Read возвращает извлечение. Анонимные извлечения доступны всем,
// привязанные к пользователю видит только их владелец.
func (s *Service) Read(ctx context.Context, userID, extractionID int64) (*models.Extraction, error) {
	const op = "services.extraction.Read"

	ext, err := s.repo.GetExtraction(ctx, extractionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ext.UserID != nil && *ext.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	}
	return ext, nil
}
