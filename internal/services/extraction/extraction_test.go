package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateExtraction(ctx context.Context, extraction models.Extraction) (int64, error) {
	args := m.Called(ctx, extraction)
	return args.Get(0).(int64), args.Error(1)
}
func (m *RepoMock) GetExtraction(ctx context.Context, extractionID int64) (*models.Extraction, error) {
	args := m.Called(ctx, extractionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Extraction), args.Error(1)
}

type ExtractorMock struct{ mock.Mock }

func (m *ExtractorMock) Extract(ctx context.Context, text string, imageBytes []byte, imageMime string) (*models.ParsedExtraction, error) {
	args := m.Called(ctx, text, imageBytes, imageMime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ParsedExtraction), args.Error(1)
}

type LimiterMock struct{ mock.Mock }

func (m *LimiterMock) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestExtractionService_Extract(t *testing.T) {
	amount := decimal.RequireFromString("300.00")
	parsed := &models.ParsedExtraction{
		Jobs:       []string{"Logo design"},
		Deadlines:  []string{"2025-06-15"},
		Amount:     &amount,
		Confidence: 80,
	}

	t.Run("authenticated user keyed by id", func(t *testing.T) {
		repo := new(RepoMock)
		extractor := new(ExtractorMock)
		limiter := new(LimiterMock)
		svc := New(repo, extractor, limiter, newNoopLogger())

		userID := int64(1)
		limiter.On("Incr", mock.Anything, "extract:user:1", time.Minute).Return(int64(1), nil).Once()
		extractor.On("Extract", mock.Anything, "need a logo for 300", []byte(nil), "").
			Return(parsed, nil).Once()
		repo.On("CreateExtraction", mock.Anything, mock.MatchedBy(func(e models.Extraction) bool {
			return e.UserID != nil && *e.UserID == 1 &&
				e.SourceType == "text" && e.Confidence == 80
		})).Return(int64(3), nil).Once()
		repo.On("GetExtraction", mock.Anything, int64(3)).
			Return(&models.Extraction{ID: 3, UserID: &userID, Parsed: *parsed}, nil).Once()

		got, err := svc.Extract(context.Background(), &userID, "10.0.0.1", "need a logo for 300", nil, "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		limiter.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("anonymous keyed by address, screenshot source", func(t *testing.T) {
		repo := new(RepoMock)
		extractor := new(ExtractorMock)
		limiter := new(LimiterMock)
		svc := New(repo, extractor, limiter, newNoopLogger())

		img := []byte{0x89, 0x50}
		limiter.On("Incr", mock.Anything, "extract:10.0.0.1", time.Minute).Return(int64(2), nil).Once()
		extractor.On("Extract", mock.Anything, "", img, "image/png").Return(parsed, nil).Once()
		repo.On("CreateExtraction", mock.Anything, mock.MatchedBy(func(e models.Extraction) bool {
			return e.UserID == nil && e.SourceType == "screenshot" && e.RawText == nil
		})).Return(int64(4), nil).Once()
		repo.On("GetExtraction", mock.Anything, int64(4)).
			Return(&models.Extraction{ID: 4, Parsed: *parsed}, nil).Once()

		got, err := svc.Extract(context.Background(), nil, "10.0.0.1", "", img, "image/png")
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.ID)
	})

	t.Run("over the limit", func(t *testing.T) {
		limiter := new(LimiterMock)
		svc := New(new(RepoMock), new(ExtractorMock), limiter, newNoopLogger())

		limiter.On("Incr", mock.Anything, "extract:10.0.0.1", time.Minute).Return(int64(11), nil).Once()

		_, err := svc.Extract(context.Background(), nil, "10.0.0.1", "text", nil, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrRateLimited))
	})

	t.Run("counter failure does not block", func(t *testing.T) {
		repo := new(RepoMock)
		extractor := new(ExtractorMock)
		limiter := new(LimiterMock)
		svc := New(repo, extractor, limiter, newNoopLogger())

		limiter.On("Incr", mock.Anything, mock.Anything, time.Minute).
			Return(int64(0), errors.New("redis down")).Once()
		extractor.On("Extract", mock.Anything, "text", []byte(nil), "").Return(parsed, nil).Once()
		repo.On("CreateExtraction", mock.Anything, mock.Anything).Return(int64(5), nil).Once()
		repo.On("GetExtraction", mock.Anything, int64(5)).
			Return(&models.Extraction{ID: 5, Parsed: *parsed}, nil).Once()

		_, err := svc.Extract(context.Background(), nil, "10.0.0.1", "text", nil, "")
		require.NoError(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		limiter := new(LimiterMock)
		svc := New(new(RepoMock), new(ExtractorMock), limiter, newNoopLogger())

		limiter.On("Incr", mock.Anything, mock.Anything, time.Minute).Return(int64(1), nil).Once()

		_, err := svc.Extract(context.Background(), nil, "10.0.0.1", "   ", nil, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrValidation))
	})

	t.Run("upstream failure", func(t *testing.T) {
		extractor := new(ExtractorMock)
		limiter := new(LimiterMock)
		svc := New(new(RepoMock), extractor, limiter, newNoopLogger())

		limiter.On("Incr", mock.Anything, mock.Anything, time.Minute).Return(int64(1), nil).Once()
		extractor.On("Extract", mock.Anything, "text", []byte(nil), "").
			Return(nil, errors.New("status 503")).Once()

		_, err := svc.Extract(context.Background(), nil, "10.0.0.1", "text", nil, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrUpstream))
	})
}

func TestExtractionService_Read(t *testing.T) {
	owner := int64(1)
	stranger := int64(2)

	t.Run("owner reads own extraction", func(t *testing.T) {
		repo := new(RepoMock)
		svc := New(repo, new(ExtractorMock), new(LimiterMock), newNoopLogger())

		repo.On("GetExtraction", mock.Anything, int64(3)).
			Return(&models.Extraction{ID: 3, UserID: &owner}, nil).Once()

		got, err := svc.Read(context.Background(), owner, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
	})

	t.Run("foreign extraction looks missing", func(t *testing.T) {
		repo := new(RepoMock)
		svc := New(repo, new(ExtractorMock), new(LimiterMock), newNoopLogger())

		repo.On("GetExtraction", mock.Anything, int64(3)).
			Return(&models.Extraction{ID: 3, UserID: &owner}, nil).Once()

		_, err := svc.Read(context.Background(), stranger, 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrNotFound))
	})

	t.Run("anonymous extraction readable", func(t *testing.T) {
		repo := new(RepoMock)
		svc := New(repo, new(ExtractorMock), new(LimiterMock), newNoopLogger())

		repo.On("GetExtraction", mock.Anything, int64(4)).
			Return(&models.Extraction{ID: 4}, nil).Once()

		got, err := svc.Read(context.Background(), stranger, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.ID)
	})
}
