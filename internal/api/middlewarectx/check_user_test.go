package middlewarectx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/invoiq/invoiq/internal/models"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLoggerCheck() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestVerifiedUserMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		ctxUserID      any
		setupMocks     func(*MockUserService)
		expectedStatus int
	}{
		{
			name:      "success - verified user",
			ctxUserID: int64(7),
			setupMocks: func(us *MockUserService) {
				us.On("GetUser", mock.Anything, int64(7)).
					Return(&models.User{ID: 7, IsVerified: true}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "forbidden - email not verified",
			ctxUserID: int64(8),
			setupMocks: func(us *MockUserService) {
				us.On("GetUser", mock.Anything, int64(8)).
					Return(&models.User{ID: 8, IsVerified: false}, nil).Once()
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "unauthorized - no user in context",
			ctxUserID:      nil,
			setupMocks:     func(*MockUserService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:      "internal error from user service",
			ctxUserID: int64(9),
			setupMocks: func(us *MockUserService) {
				us.On("GetUser", mock.Anything, int64(9)).
					Return(nil, assert.AnError).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserService)
			tt.setupMocks(users)

			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			mw := VerifiedUserMiddleware(newNoopLoggerCheck(), users)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.ctxUserID != nil {
				req = req.WithContext(context.WithValue(req.Context(), UserID, tt.ctxUserID))
			}
			w := httptest.NewRecorder()
			mw(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			users.AssertExpectations(t)
		})
	}
}
