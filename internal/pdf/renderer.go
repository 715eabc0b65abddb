// Package pdf рисует PDF-документ счёта: шапку с номером и датами,
// блок заказчика, таблицу строк и итоги.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/invoiq/invoiq/internal/models"
)

// Data — данные, необходимые для отрисовки счёта.
type Data struct {
	Number        *string
	ClientName    string
	ClientEmail   *string
	ClientAddress *string
	IssuedDate    *time.Time
	DueDate       *time.Time
	Items         []models.InvoiceItem
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Currency      string
}

// Render отрисовывает счёт и возвращает готовый PDF.
func Render(data Data) ([]byte, error) {
	const op = "pdf.Render"

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Invoice", false)
	doc.AddPage()

	doc.SetFont("Arial", "B", 24)
	doc.Cell(100, 12, "INVOICE")

	doc.SetFont("Arial", "", 10)
	metaX := 130.0
	y := 12.0
	if data.Number != nil {
		doc.SetXY(metaX, y)
		doc.Cell(60, 5, "Invoice #: "+*data.Number)
		y += 5
	}
	if data.IssuedDate != nil {
		doc.SetXY(metaX, y)
		doc.Cell(60, 5, "Issued: "+data.IssuedDate.Format("2006-01-02"))
		y += 5
	}
	if data.DueDate != nil {
		doc.SetXY(metaX, y)
		doc.Cell(60, 5, "Due: "+data.DueDate.Format("2006-01-02"))
	}

	doc.SetXY(10, 40)
	doc.SetFont("Arial", "B", 11)
	doc.Cell(60, 6, "Bill To:")
	doc.Ln(6)
	doc.SetFont("Arial", "", 10)
	doc.Cell(120, 5, data.ClientName)
	doc.Ln(5)
	if data.ClientEmail != nil {
		doc.Cell(120, 5, *data.ClientEmail)
		doc.Ln(5)
	}
	if data.ClientAddress != nil {
		doc.Cell(120, 5, *data.ClientAddress)
		doc.Ln(5)
	}

	doc.Ln(8)
	doc.SetFont("Arial", "B", 10)
	doc.SetFillColor(238, 238, 238)
	doc.CellFormat(90, 8, "Description", "B", 0, "L", true, 0, "")
	doc.CellFormat(30, 8, "Qty", "B", 0, "R", true, 0, "")
	doc.CellFormat(35, 8, "Unit", "B", 0, "R", true, 0, "")
	doc.CellFormat(35, 8, "Amount", "B", 1, "R", true, 0, "")

	doc.SetFont("Arial", "", 10)
	for _, it := range data.Items {
		amount := decimal.Zero
		if it.Amount.Valid {
			amount = it.Amount.Decimal
		}
		doc.CellFormat(90, 7, it.Description, "B", 0, "L", false, 0, "")
		doc.CellFormat(30, 7, it.Quantity.StringFixed(2), "B", 0, "R", false, 0, "")
		doc.CellFormat(35, 7, it.UnitPrice.StringFixed(2), "B", 0, "R", false, 0, "")
		doc.CellFormat(35, 7, amount.StringFixed(2), "B", 1, "R", false, 0, "")
	}

	doc.Ln(6)
	totals := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Subtotal:", data.Subtotal, false},
		{"Tax:", data.Tax, false},
		{"Total:", data.Total, true},
	}
	for _, row := range totals {
		style := ""
		if row.bold {
			style = "B"
		}
		doc.SetFont("Arial", style, 10)
		doc.SetX(120)
		doc.CellFormat(35, 6, row.label, "", 0, "L", false, 0, "")
		doc.CellFormat(35, 6, row.value.StringFixed(2)+" "+data.Currency, "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

// Filename возвращает имя файла PDF для счёта.
func Filename(number *string) string {
	if number == nil || *number == "" {
		return "invoice_no-num.pdf"
	}
	return "invoice_" + *number + ".pdf"
}
