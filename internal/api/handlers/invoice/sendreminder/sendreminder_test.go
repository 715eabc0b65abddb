package sendreminder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/lib/errs"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Send(ctx context.Context, userID, invoiceID int64) error {
	return m.Called(ctx, userID, invoiceID).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSendReminderHandler(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		withUser       bool
		mockError      error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Success",
			query:          "?invoice_id=10",
			withUser:       true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Invalid invoice id",
			query:          "?invoice_id=abc",
			withUser:       true,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid invoice id",
		},
		{
			name:           "Missing user in context",
			query:          "?invoice_id=10",
			withUser:       false,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "Foreign invoice",
			query:          "?invoice_id=10",
			withUser:       true,
			mockError:      errs.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "not found",
		},
		{
			name:           "Client without email",
			query:          "?invoice_id=10",
			withUser:       true,
			mockError:      errs.ErrValidation,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "validation failed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := new(ServiceMock)
			if tc.withUser && tc.expectedStatus != http.StatusBadRequest {
				service.On("Send", mock.Anything, int64(1), int64(10)).
					Return(tc.mockError).Once()
			}

			handler := New(newNoopLogger(), service)

			req := httptest.NewRequest(http.MethodPost, "/send-reminder"+tc.query, nil)
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tc.withUser {
				ctx = context.WithValue(ctx, middlewarectx.UserID, int64(1))
			}
			req = req.WithContext(ctx)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(t, tc.expectedStatus, rr.Code)

			var body map[string]any
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))

			if tc.expectedError != "" {
				assert.Equal(t, tc.expectedError, body["error"])
				return
			}
			data, ok := body["data"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, float64(10), data["invoice_id"])
			assert.Equal(t, true, data["queued"])
			service.AssertExpectations(t)
		})
	}
}
