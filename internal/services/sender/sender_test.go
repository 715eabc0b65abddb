package sender

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/lib/smtp"
)

type MockTransport struct{ mock.Mock }

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}
func (m *MockTransport) From() string {
	return m.Called().String(0)
}

type MockSMTPClient struct{ mock.Mock }

func (m *MockSMTPClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockSMTPClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}
func (m *MockSMTPClient) Close() error { return m.Called().Error(0) }
func (m *MockSMTPClient) Quit() error  { return m.Called().Error(0) }

type captureWriter struct {
	data []byte
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
func (w *captureWriter) Close() error { return nil }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func setupHappyPath(t *testing.T, recipient string) (*MockTransport, *captureWriter) {
	t.Helper()
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	writer := &captureWriter{}

	transport.On("From").Return("noreply@invoiq.app")
	transport.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@invoiq.app").Return(nil).Once()
	client.On("Rcpt", recipient).Return(nil).Once()
	client.On("Data").Return(writer, nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()

	return transport, writer
}

func TestSendInvoiceReminder(t *testing.T) {
	transport, writer := setupHappyPath(t, "client@example.com")
	svc := New(transport, "http://localhost:3000", newNoopLogger())

	number := "INV-20250101-001"
	body := mustJSON(t, map[string]any{
		"invoice_id":   10,
		"number":       number,
		"client_name":  "Acme",
		"client_email": "client@example.com",
		"owner_email":  "owner@example.com",
		"total":        decimal.RequireFromString("620.00"),
		"currency":     "USD",
		"due_date":     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, svc.SendInvoiceReminder(body))

	msg := string(writer.data)
	assert.Contains(t, msg, "Subject: Payment reminder: invoice INV-20250101-001 is due tomorrow")
	assert.Contains(t, msg, "620.00 USD")
	assert.Contains(t, msg, "2025-01-15")
	assert.Contains(t, msg, "To: client@example.com")
}

func TestSendVerificationEmail(t *testing.T) {
	transport, writer := setupHappyPath(t, "user@example.com")
	svc := New(transport, "http://localhost:3000/", newNoopLogger())

	body := mustJSON(t, map[string]any{
		"email": "user@example.com",
		"token": "tok-123",
	})

	require.NoError(t, svc.SendVerificationEmail(body))

	msg := string(writer.data)
	assert.Contains(t, msg, "http://localhost:3000/verify-email?token=tok-123")
	assert.Contains(t, msg, "Subject: Confirm your email address")
}

func TestSendInvoiceReminder_BadPayload(t *testing.T) {
	svc := New(new(MockTransport), "http://localhost:3000", newNoopLogger())
	require.Error(t, svc.SendInvoiceReminder([]byte("{not json")))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
