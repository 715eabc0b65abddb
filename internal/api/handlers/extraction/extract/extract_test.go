package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Extract(ctx context.Context, userID *int64, clientKey, text string,
	imageBytes []byte, imageMime string) (*models.Extraction, error) {
	args := m.Called(ctx, userID, clientKey, text, imageBytes, imageMime)
	extraction, _ := args.Get(0).(*models.Extraction)
	return extraction, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newMultipartRequest(t *testing.T, text string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if text != "" {
		require.NoError(t, writer.WriteField("text", text))
	}
	if file != nil {
		part, err := writer.CreateFormFile("file", "invoice.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/extract-job-details", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.RemoteAddr = "10.0.0.1:55555"
	return req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
}

func TestExtractHandler_Authenticated(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)

	extraction := &models.Extraction{ID: 10}
	serviceMock.On("Extract", mock.Anything,
		mock.MatchedBy(func(userID *int64) bool { return userID != nil && *userID == 1 }),
		"10.0.0.1", "invoice for Acme", []byte(nil), "").
		Return(extraction, nil).Once()

	req := newMultipartRequest(t, "invoice for Acme", nil)
	req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, int64(1)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "OK", got["status"])
	data, ok := got["data"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, float64(10), data["id"])

	serviceMock.AssertExpectations(t)
}

func TestExtractHandler_AnonymousWithScreenshot(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)

	file := []byte{0x89, 0x50, 0x4e, 0x47}
	serviceMock.On("Extract", mock.Anything, (*int64)(nil),
		"203.0.113.5", "", file, "application/octet-stream").
		Return(&models.Extraction{ID: 11}, nil).Once()

	req := newMultipartRequest(t, "", file)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	serviceMock.AssertExpectations(t)
}

func TestExtractHandler_RateLimited(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)

	serviceMock.On("Extract", mock.Anything, (*int64)(nil),
		"10.0.0.1", "invoice text", []byte(nil), "").
		Return(nil, fmt.Errorf("services.extraction.Extract: %w", errs.ErrRateLimited)).Once()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newMultipartRequest(t, "invoice text", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Error", got["status"])
	assert.Equal(t, "too many requests", got["error"])

	serviceMock.AssertExpectations(t)
}

func TestExtractHandler_UpstreamFailure(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)

	serviceMock.On("Extract", mock.Anything, (*int64)(nil),
		"10.0.0.1", "invoice text", []byte(nil), "").
		Return(nil, fmt.Errorf("services.extraction.Extract: %w", errs.ErrUpstream)).Once()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newMultipartRequest(t, "invoice text", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	serviceMock.AssertExpectations(t)
}
