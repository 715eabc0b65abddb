package create

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, userID int64, req models.DummyInvoice) (*models.InvoiceDetails, error) {
	args := m.Called(ctx, userID, req)
	details, _ := args.Get(0).(*models.InvoiceDetails)
	return details, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	total := decimal.RequireFromString("100.00")

	details := &models.InvoiceDetails{
		Invoice: models.Invoice{
			ID:       7,
			UserID:   1,
			ClientID: 2,
			Status:   models.InvoiceStatusDraft,
			Currency: "USD",
			Total:    decimal.NewNullDecimal(total),
		},
	}

	tests := []struct {
		name           string
		requestBody    any
		withUser       bool
		mockResult     *models.InvoiceDetails
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name:           "valid request",
			requestBody:    models.DummyInvoice{ClientID: 2},
			withUser:       true,
			mockResult:     details,
			wantStatusCode: http.StatusCreated,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			withUser:       true,
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid request body",
		},
		{
			name:           "validation error - missing client id",
			requestBody:    models.DummyInvoice{},
			withUser:       true,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
			wantError:      "field ClientID is a required field",
		},
		{
			name:           "no user in context",
			requestBody:    models.DummyInvoice{ClientID: 2},
			withUser:       false,
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     "Error",
			wantError:      "unauthorized",
		},
		{
			name:           "client not found",
			requestBody:    models.DummyInvoice{ClientID: 99},
			withUser:       true,
			mockErr:        fmt.Errorf("services.invoice.Create: %w", errs.ErrNotFound),
			wantStatusCode: http.StatusNotFound,
			wantStatus:     "Error",
			wantError:      "not found",
		},
		{
			name:           "duplicate number",
			requestBody:    models.DummyInvoice{ClientID: 2},
			withUser:       true,
			mockErr:        fmt.Errorf("services.invoice.Create: %w", errs.ErrConflict),
			wantStatusCode: http.StatusConflict,
			wantStatus:     "Error",
			wantError:      "conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if tt.mockResult != nil || tt.mockErr != nil {
				serviceMock.On("Create", mock.Anything, int64(1), mock.Anything).
					Return(tt.mockResult, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/invoices", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.withUser {
				ctx = context.WithValue(ctx, middlewarectx.UserID, int64(1))
			}
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, float64(7), data["id"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}

func TestCreateHandler_IdempotencyKeyHeader(t *testing.T) {
	serviceMock := new(ServiceMock)
	handler := New(newNoopLogger(), serviceMock)

	serviceMock.On("Create", mock.Anything, int64(1),
		mock.MatchedBy(func(req models.DummyInvoice) bool {
			return req.IdempotencyKey != nil && *req.IdempotencyKey == "key-123"
		})).
		Return(&models.InvoiceDetails{Invoice: models.Invoice{ID: 7}}, nil).Once()

	bodyBytes, err := json.Marshal(models.DummyInvoice{ClientID: 2})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/invoices", bytes.NewReader(bodyBytes))
	req.Header.Set("Idempotency-Key", "key-123")
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
	ctx = context.WithValue(ctx, middlewarectx.UserID, int64(1))
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	serviceMock.AssertExpectations(t)
}
