package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateClient(ctx context.Context, client models.Client) (int64, error) {
	args := m.Called(ctx, client)
	return args.Get(0).(int64), args.Error(1)
}
func (m *RepoMock) GetClient(ctx context.Context, userID, clientID int64) (*models.Client, error) {
	args := m.Called(ctx, userID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}
func (m *RepoMock) ListClients(ctx context.Context, userID int64, limit, offset int) ([]*models.Client, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Client), args.Error(1)
}
func (m *RepoMock) UpdateClient(ctx context.Context, client models.Client) error {
	return m.Called(ctx, client).Error(0)
}
func (m *RepoMock) DeleteClient(ctx context.Context, userID, clientID int64) error {
	return m.Called(ctx, userID, clientID).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func strPtr(s string) *string { return &s }

func TestClientService_Create(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, newNoopLogger())

	email := "acme@example.com"
	repo.On("CreateClient", mock.Anything, mock.MatchedBy(func(c models.Client) bool {
		return c.UserID == 1 && c.Name == "Acme" && c.Email != nil && *c.Email == email
	})).Return(int64(5), nil).Once()
	repo.On("GetClient", mock.Anything, int64(1), int64(5)).
		Return(&models.Client{ID: 5, UserID: 1, Name: "Acme", Email: &email}, nil).Once()

	got, err := svc.Create(context.Background(), 1, models.DummyClient{Name: "Acme", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	repo.AssertExpectations(t)
}

func TestClientService_Read_NotFound(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, newNoopLogger())

	repo.On("GetClient", mock.Anything, int64(1), int64(9)).Return(nil, errs.ErrNotFound).Once()

	_, err := svc.Read(context.Background(), 1, 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestClientService_List_SanitizesLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"zero becomes default", 0, 50},
		{"over max is capped", 300, 100},
		{"normal passes through", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			svc := New(repo, newNoopLogger())

			repo.On("ListClients", mock.Anything, int64(1), tt.wantLimit, 0).
				Return([]*models.Client{}, nil).Once()

			_, err := svc.List(context.Background(), 1, tt.limit, 0)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestClientService_Update_MergesFields(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, newNoopLogger())

	oldEmail := "old@example.com"
	current := &models.Client{ID: 5, UserID: 1, Name: "Acme", Email: &oldEmail}
	repo.On("GetClient", mock.Anything, int64(1), int64(5)).Return(current, nil).Once()
	repo.On("UpdateClient", mock.Anything, mock.MatchedBy(func(c models.Client) bool {
		return c.ID == 5 && c.Name == "Acme Ltd" &&
			c.Email != nil && *c.Email == oldEmail
	})).Return(nil).Once()

	got, err := svc.Update(context.Background(), 1, 5, models.DummyClientUpdate{
		Name: strPtr("Acme Ltd"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", got.Name)
	repo.AssertExpectations(t)
}

func TestClientService_Remove(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := new(RepoMock)
		svc := New(repo, newNoopLogger())

		repo.On("DeleteClient", mock.Anything, int64(1), int64(5)).Return(nil).Once()
		require.NoError(t, svc.Remove(context.Background(), 1, 5))
	})

	t.Run("foreign client", func(t *testing.T) {
		repo := new(RepoMock)
		svc := New(repo, newNoopLogger())

		repo.On("DeleteClient", mock.Anything, int64(1), int64(6)).Return(errs.ErrNotFound).Once()

		err := svc.Remove(context.Background(), 1, 6)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrNotFound))
	})
}
