package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiq/invoiq/internal/models"
)

func TestRender(t *testing.T) {
	number := "INV-20250101-001"
	email := "client@example.com"
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	due := issued.AddDate(0, 0, 14)

	out, err := Render(Data{
		Number:      &number,
		ClientName:  "Acme Ltd",
		ClientEmail: &email,
		IssuedDate:  &issued,
		DueDate:     &due,
		Items: []models.InvoiceItem{
			{
				Description: "Logo design",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.RequireFromString("250.00"),
				Amount:      decimal.NewNullDecimal(decimal.RequireFromString("500.00")),
			},
			{
				Description: "Business cards",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString("100.00"),
				Amount:      decimal.NewNullDecimal(decimal.RequireFromString("100.00")),
			},
		},
		Subtotal: decimal.RequireFromString("600.00"),
		Tax:      decimal.RequireFromString("20.00"),
		Total:    decimal.RequireFromString("620.00"),
		Currency: "USD",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderWithoutOptionalFields(t *testing.T) {
	out, err := Render(Data{
		ClientName: "Walk-in",
		Subtotal:   decimal.Zero,
		Tax:        decimal.Zero,
		Total:      decimal.Zero,
		Currency:   "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestFilename(t *testing.T) {
	number := "INV-20250101-002"
	assert.Equal(t, "invoice_INV-20250101-002.pdf", Filename(&number))
	assert.Equal(t, "invoice_no-num.pdf", Filename(nil))
}
