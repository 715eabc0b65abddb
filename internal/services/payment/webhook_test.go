package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/paymentprovider"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetPaymentByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *RepoMock) UpdatePaymentStatus(ctx context.Context, paymentID int64, status string) error {
	return m.Called(ctx, paymentID, status).Error(0)
}
func (m *RepoMock) ActivateProSubscription(ctx context.Context, userID int64, provider, providerRef string, start, end time.Time) error {
	return m.Called(ctx, userID, provider, providerRef, start, end).Error(0)
}
func (m *RepoMock) GetUserBySubscriptionProviderID(ctx context.Context, providerID string) (*models.User, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *RepoMock) DeactivateProSubscription(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *RepoMock) UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status string) error {
	return m.Called(ctx, invoiceID, status).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const (
	paystackSecret = "sk_test_secret"
	stripeSecret   = "whsec_test"
)

func signPaystack(body []byte) string {
	mac := hmac.New(sha512.New, []byte(paystackSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signStripe(body []byte) string {
	mac := hmac.New(sha256.New, []byte(stripeSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookService(repo *RepoMock) *WebhookService {
	return NewWebhookService(repo, map[string]string{
		paymentprovider.Paystack: paystackSecret,
		paymentprovider.Stripe:   stripeSecret,
	}, newNoopLogger())
}

func TestWebhookService_TamperedSignature(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	body := []byte(`{"event":"charge.success","data":{"reference":"inv10"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, "deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	repo.AssertNotCalled(t, "GetPaymentByProviderRef", mock.Anything, mock.Anything)
}

func TestWebhookService_ChargeSuccess_MarksInvoicePaid(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	invoiceID := int64(10)
	repo.On("GetPaymentByProviderRef", mock.Anything, "inv10").Return(&models.Payment{
		ID:          3,
		InvoiceID:   &invoiceID,
		PaymentType: models.PaymentTypeInvoice,
		Provider:    paymentprovider.Paystack,
		Status:      models.PaymentStatusPending,
	}, nil).Once()
	repo.On("UpdatePaymentStatus", mock.Anything, int64(3), models.PaymentStatusPaid).Return(nil).Once()
	repo.On("UpdateInvoiceStatus", mock.Anything, invoiceID, models.InvoiceStatusPaid).Return(nil).Once()

	body := []byte(`{"event":"charge.success","data":{"reference":"inv10"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, signPaystack(body))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWebhookService_ChargeSuccess_ActivatesSubscription(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	userID := int64(1)
	repo.On("GetPaymentByProviderRef", mock.Anything, "pro_sub_1_100").Return(&models.Payment{
		ID:          4,
		UserID:      &userID,
		PaymentType: models.PaymentTypeSubscription,
		Provider:    paymentprovider.Paystack,
		Status:      models.PaymentStatusPending,
	}, nil).Once()
	repo.On("UpdatePaymentStatus", mock.Anything, int64(4), models.PaymentStatusPaid).Return(nil).Once()
	repo.On("ActivateProSubscription", mock.Anything, userID, paymentprovider.Paystack,
		"pro_sub_1_100", mock.Anything, mock.Anything).Return(nil).Once()

	body := []byte(`{"event":"charge.success","data":{"reference":"pro_sub_1_100"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, signPaystack(body))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWebhookService_Replay_IsNoOp(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	invoiceID := int64(10)
	repo.On("GetPaymentByProviderRef", mock.Anything, "inv10").Return(&models.Payment{
		ID:          3,
		InvoiceID:   &invoiceID,
		PaymentType: models.PaymentTypeInvoice,
		Status:      models.PaymentStatusPaid,
	}, nil).Once()

	body := []byte(`{"event":"charge.success","data":{"reference":"inv10"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, signPaystack(body))
	require.NoError(t, err)
	repo.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateInvoiceStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_UnknownPayment_Acknowledged(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	repo.On("GetPaymentByProviderRef", mock.Anything, "ghost").Return(nil, errs.ErrNotFound).Once()

	body := []byte(`{"event":"charge.success","data":{"reference":"ghost"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, signPaystack(body))
	require.NoError(t, err)
}

func TestWebhookService_UnknownEvent_Acknowledged(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	body := []byte(`{"event":"transfer.success","data":{"reference":"x"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, signPaystack(body))
	require.NoError(t, err)
	repo.AssertNotCalled(t, "GetPaymentByProviderRef", mock.Anything, mock.Anything)
}

func TestWebhookService_StripeCheckoutCompleted(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	userID := int64(1)
	payment := &models.Payment{
		ID:          5,
		UserID:      &userID,
		PaymentType: models.PaymentTypeSubscription,
		Provider:    paymentprovider.Stripe,
		Status:      models.PaymentStatusPending,
	}
	repo.On("GetPaymentByProviderRef", mock.Anything, "cs_test_123").Return(payment, nil).Twice()
	repo.On("UpdatePaymentStatus", mock.Anything, int64(5), models.PaymentStatusPaid).Return(nil).Once()
	repo.On("ActivateProSubscription", mock.Anything, userID, paymentprovider.Stripe,
		"cs_test_123", mock.Anything, mock.Anything).Return(nil).Once()

	body := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_test_123","client_reference_id":"pro_sub_1_100"}}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Stripe, body, signStripe(body))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWebhookService_SubscriptionDisable_ByProviderID(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	repo.On("GetUserBySubscriptionProviderID", mock.Anything, "SUB_abc123").
		Return(&models.User{ID: 1, IsPro: true}, nil).Once()
	repo.On("DeactivateProSubscription", mock.Anything, int64(1)).Return(nil).Once()

	body := []byte(`{"event":"subscription.disable","data":{"subscription_code":"SUB_abc123"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, signPaystack(body))
	require.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "GetPaymentByProviderRef", mock.Anything, mock.Anything)
}

func TestWebhookService_StripeSubscriptionDeleted(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	repo.On("GetUserBySubscriptionProviderID", mock.Anything, "sub_123").
		Return(&models.User{ID: 7, IsPro: true}, nil).Once()
	repo.On("DeactivateProSubscription", mock.Anything, int64(7)).Return(nil).Once()

	body := []byte(`{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_123"}}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Stripe, body, signStripe(body))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWebhookService_SubscriptionDisable_PaymentFallback(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	userID := int64(1)
	repo.On("GetUserBySubscriptionProviderID", mock.Anything, "pro_sub_1_100").
		Return(nil, errs.ErrNotFound).Once()
	repo.On("GetPaymentByProviderRef", mock.Anything, "pro_sub_1_100").Return(&models.Payment{
		ID:     4,
		UserID: &userID,
		Status: models.PaymentStatusPaid,
	}, nil).Once()
	repo.On("DeactivateProSubscription", mock.Anything, userID).Return(nil).Once()

	body := []byte(`{"event":"subscription.disable","data":{"reference":"pro_sub_1_100"}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Paystack, body, signPaystack(body))
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWebhookService_SubscriptionDisable_UnknownAcknowledged(t *testing.T) {
	repo := new(RepoMock)
	svc := newWebhookService(repo)

	repo.On("GetUserBySubscriptionProviderID", mock.Anything, "sub_ghost").
		Return(nil, errs.ErrNotFound).Once()
	repo.On("GetPaymentByProviderRef", mock.Anything, "sub_ghost").
		Return(nil, errs.ErrNotFound).Once()

	body := []byte(`{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_ghost"}}}`)
	err := svc.ProcessEvent(context.Background(), paymentprovider.Stripe, body, signStripe(body))
	require.NoError(t, err)
	repo.AssertNotCalled(t, "DeactivateProSubscription", mock.Anything, mock.Anything)
}
