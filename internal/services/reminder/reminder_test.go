package reminder

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
	"github.com/invoiq/invoiq/internal/rabbitmq"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetInvoiceWithItems(ctx context.Context, userID, invoiceID int64) (*models.InvoiceDetails, error) {
	args := m.Called(ctx, userID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceDetails), args.Error(1)
}
func (m *RepoMock) GetClient(ctx context.Context, userID, clientID int64) (*models.Client, error) {
	args := m.Called(ctx, userID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}
func (m *RepoMock) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *RepoMock) UpdateInvoiceWithItems(ctx context.Context, inv models.Invoice, items *[]models.InvoiceItem) error {
	return m.Called(ctx, inv, items).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func strPtr(s string) *string { return &s }

func testDetails(status string) *models.InvoiceDetails {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &models.InvoiceDetails{
		Invoice: models.Invoice{
			ID:       10,
			UserID:   1,
			ClientID: 5,
			Number:   strPtr("INV-2025-001"),
			Status:   status,
			DueDate:  &due,
			Total:    decimal.NewNullDecimal(decimal.RequireFromString("620.00")),
			Currency: "USD",
		},
	}
}

func TestReminderService_Send_DraftBecomesSent(t *testing.T) {
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	cache := new(CacheMock)
	svc := New(repo, publisher, cache, newNoopLogger())

	email := "billing@acme.test"
	repo.On("GetInvoiceWithItems", mock.Anything, int64(1), int64(10)).
		Return(testDetails(models.InvoiceStatusDraft), nil).Once()
	repo.On("GetClient", mock.Anything, int64(1), int64(5)).
		Return(&models.Client{ID: 5, UserID: 1, Name: "Acme", Email: &email}, nil).Once()
	repo.On("GetUser", mock.Anything, int64(1)).
		Return(&models.User{ID: 1, Email: "owner@example.com"}, nil).Once()
	repo.On("UpdateInvoiceWithItems", mock.Anything, mock.MatchedBy(func(inv models.Invoice) bool {
		return inv.ID == 10 && inv.Status == models.InvoiceStatusSent
	}), (*[]models.InvoiceItem)(nil)).Return(nil).Once()
	cache.On("Invalidate", "invoice:1:10").Return(nil).Once()
	publisher.On("Publish", rabbitmq.RoutingKeyReminders, mock.MatchedBy(func(msg any) bool {
		info, ok := msg.(models.ReminderInfo)
		return ok && info.InvoiceID == 10 && info.ClientEmail == email &&
			info.OwnerEmail == "owner@example.com" && info.Total.Equal(decimal.RequireFromString("620.00"))
	})).Return(nil).Once()

	require.NoError(t, svc.Send(context.Background(), 1, 10))
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestReminderService_Send_SentInvoiceNotUpdated(t *testing.T) {
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	cache := new(CacheMock)
	svc := New(repo, publisher, cache, newNoopLogger())

	email := "billing@acme.test"
	repo.On("GetInvoiceWithItems", mock.Anything, int64(1), int64(10)).
		Return(testDetails(models.InvoiceStatusSent), nil).Once()
	repo.On("GetClient", mock.Anything, int64(1), int64(5)).
		Return(&models.Client{ID: 5, UserID: 1, Name: "Acme", Email: &email}, nil).Once()
	repo.On("GetUser", mock.Anything, int64(1)).
		Return(&models.User{ID: 1, Email: "owner@example.com"}, nil).Once()
	publisher.On("Publish", rabbitmq.RoutingKeyReminders, mock.Anything).Return(nil).Once()

	require.NoError(t, svc.Send(context.Background(), 1, 10))
	repo.AssertNotCalled(t, "UpdateInvoiceWithItems", mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertExpectations(t)
}

func TestReminderService_Send_ClientWithoutEmail(t *testing.T) {
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	cache := new(CacheMock)
	svc := New(repo, publisher, cache, newNoopLogger())

	repo.On("GetInvoiceWithItems", mock.Anything, int64(1), int64(10)).
		Return(testDetails(models.InvoiceStatusDraft), nil).Once()
	repo.On("GetClient", mock.Anything, int64(1), int64(5)).
		Return(&models.Client{ID: 5, UserID: 1, Name: "Acme"}, nil).Once()

	err := svc.Send(context.Background(), 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestReminderService_Send_ForeignInvoice(t *testing.T) {
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	cache := new(CacheMock)
	svc := New(repo, publisher, cache, newNoopLogger())

	repo.On("GetInvoiceWithItems", mock.Anything, int64(2), int64(10)).
		Return(nil, errs.ErrNotFound).Once()

	err := svc.Send(context.Background(), 2, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
