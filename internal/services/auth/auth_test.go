package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/lib/jwt"
	"github.com/invoiq/invoiq/internal/lib/password"
	"github.com/invoiq/invoiq/internal/models"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) RegisterUser(ctx context.Context, user models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}
func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UserRepoMock) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UserRepoMock) VerifyUserEmail(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *UserRepoMock) SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	return m.Called(ctx, userID, token, expires).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock, p *PublisherMock)
		wantErr    bool
		wantErrIs  error
	}{
		{
			name: "successful registration queues email",
			setupMocks: func(r *UserRepoMock, p *PublisherMock) {
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "test@example.com" &&
						u.PasswordHash != "" && u.PasswordHash != "password123" &&
						u.IsActive && !u.IsVerified &&
						u.VerificationToken != nil && *u.VerificationToken != ""
				})).Return(int64(1), nil).Once()
				p.On("Publish", "emails", mock.MatchedBy(func(msg models.VerificationEmail) bool {
					return msg.Email == "test@example.com" && msg.Token != ""
				})).Return(nil).Once()
				r.On("GetUser", mock.Anything, int64(1)).
					Return(&models.User{ID: 1, Email: "test@example.com"}, nil).Once()
			},
		},
		{
			name: "duplicate email",
			setupMocks: func(r *UserRepoMock, _ *PublisherMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).
					Return(int64(0), errs.ErrConflict).Once()
			},
			wantErr:   true,
			wantErrIs: errs.ErrConflict,
		},
		{
			name: "publish failure does not fail registration",
			setupMocks: func(r *UserRepoMock, p *PublisherMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).Return(int64(2), nil).Once()
				p.On("Publish", "emails", mock.Anything).Return(errors.New("amqp down")).Once()
				r.On("GetUser", mock.Anything, int64(2)).
					Return(&models.User{ID: 2, Email: "test@example.com"}, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			publisher := new(PublisherMock)
			svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour), publisher, newNoopLogger())

			tt.setupMocks(repo, publisher)

			got, err := svc.Register(context.Background(), models.DummyRegister{
				Email:    "test@example.com",
				Password: "password123",
			})
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.True(t, errors.Is(err, tt.wantErrIs))
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, "test@example.com", got.Email)
			}

			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashed, err := password.GetHash("correcthorse")
	require.NoError(t, err)

	user := &models.User{ID: 3, Email: "test@example.com", PasswordHash: hashed}

	t.Run("successful login returns parseable token", func(t *testing.T) {
		repo := new(UserRepoMock)
		maker := jwt.NewJWTMaker("test-secret", time.Hour)
		svc := New(repo, maker, nil, newNoopLogger())

		repo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()

		token, got, err := svc.Login(context.Background(), models.DummyLogin{
			Email:    "test@example.com",
			Password: "correcthorse",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)

		claims, err := maker.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(3), claims.UserID)
		assert.Equal(t, "test@example.com", claims.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(UserRepoMock)
		svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour), nil, newNoopLogger())

		repo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(user, nil).Once()

		_, _, err := svc.Login(context.Background(), models.DummyLogin{
			Email:    "test@example.com",
			Password: "wrong",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	})

	t.Run("unknown email maps to unauthorized", func(t *testing.T) {
		repo := new(UserRepoMock)
		svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour), nil, newNoopLogger())

		repo.On("GetUserByEmail", mock.Anything, "nobody@example.com").
			Return(nil, errs.ErrNotFound).Once()

		_, _, err := svc.Login(context.Background(), models.DummyLogin{
			Email:    "nobody@example.com",
			Password: "whatever",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	})
}

func TestAuthService_VerifyEmail(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := new(UserRepoMock)
		svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour), nil, newNoopLogger())

		repo.On("VerifyUserEmail", mock.Anything, "tok-1").Return(nil).Once()
		require.NoError(t, svc.VerifyEmail(context.Background(), "tok-1"))
	})

	t.Run("expired token", func(t *testing.T) {
		repo := new(UserRepoMock)
		svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour), nil, newNoopLogger())

		repo.On("VerifyUserEmail", mock.Anything, "tok-2").Return(errs.ErrNotFound).Once()

		err := svc.VerifyEmail(context.Background(), "tok-2")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrNotFound))
	})
}

func TestAuthService_ResendVerification(t *testing.T) {
	t.Run("issues new token and queues email", func(t *testing.T) {
		repo := new(UserRepoMock)
		publisher := new(PublisherMock)
		svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour), publisher, newNoopLogger())

		repo.On("GetUserByEmail", mock.Anything, "test@example.com").
			Return(&models.User{ID: 4, Email: "test@example.com"}, nil).Once()
		repo.On("SetVerificationToken", mock.Anything, int64(4), mock.Anything, mock.Anything).
			Return(nil).Once()
		publisher.On("Publish", "emails", mock.Anything).Return(nil).Once()

		require.NoError(t, svc.ResendVerification(context.Background(), "test@example.com"))
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("already verified", func(t *testing.T) {
		repo := new(UserRepoMock)
		svc := New(repo, jwt.NewJWTMaker("test-secret", time.Hour), nil, newNoopLogger())

		repo.On("GetUserByEmail", mock.Anything, "test@example.com").
			Return(&models.User{ID: 4, Email: "test@example.com", IsVerified: true}, nil).Once()

		err := svc.ResendVerification(context.Background(), "test@example.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrConflict))
	})
}
