package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/lib/money"
	"github.com/invoiq/invoiq/internal/models"
)

// normalizeItems приводит строки счёта к хранимому виду: количество и
// цена квантуются, сумма строки берётся из запроса или вычисляется
// как произведение квантованных операндов.
func normalizeItems(rawItems []models.DummyInvoiceItem) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(rawItems))
	for _, it := range rawItems {
		amount := money.Mul(it.Quantity, it.UnitPrice)
		if it.Amount != nil {
			amount = money.Quantize(*it.Amount)
		}
		items = append(items, models.InvoiceItem{
			Description: it.Description,
			Quantity:    money.Quantize(it.Quantity),
			UnitPrice:   money.Quantize(it.UnitPrice),
			Amount:      decimal.NewNullDecimal(amount),
		})
	}
	return items
}

// reconcile вычисляет строки и агрегаты счёта.
//
// Когда строки есть, а subtotal или total не заданы, агрегаты
// вычисляются из сумм строк, налог по умолчанию 0.00. Когда вызывающая
// сторона задала все три значения, проверяется subtotal + tax == total
// после квантования — расхождение является ошибкой валидации, а не
// поводом молча пересчитать.
func reconcile(rawItems []models.DummyInvoiceItem,
	subtotal, tax, total *decimal.Decimal) ([]models.InvoiceItem, decimal.NullDecimal, decimal.NullDecimal, decimal.NullDecimal, error) {

	items := normalizeItems(rawItems)

	var sub, tx, tot decimal.NullDecimal
	if subtotal != nil {
		sub = decimal.NewNullDecimal(money.Quantize(*subtotal))
	}
	if tax != nil {
		tx = decimal.NewNullDecimal(money.Quantize(*tax))
	}
	if total != nil {
		tot = decimal.NewNullDecimal(money.Quantize(*total))
	}

	if len(items) > 0 && (!sub.Valid || !tot.Valid) {
		amounts := make([]decimal.Decimal, 0, len(items))
		for _, it := range items {
			amounts = append(amounts, it.Amount.Decimal)
		}
		s := money.Sum(amounts...)
		taxValue := money.QuantizePtr(tax)
		sub = decimal.NewNullDecimal(s)
		tx = decimal.NewNullDecimal(taxValue)
		tot = decimal.NewNullDecimal(money.Sum(s, taxValue))
	}

	if sub.Valid && tx.Valid && tot.Valid {
		if !money.Equal(sub.Decimal.Add(tx.Decimal), tot.Decimal) {
			return nil, sub, tx, tot,
				fmt.Errorf("subtotal + tax must equal total: %w", errs.ErrValidation)
		}
	}
	return items, sub, tx, tot, nil
}

// buildItemsFromExtraction синтезирует строки счёта из результата
// извлечения: по строке на каждую работу с равномерно распределённой
// суммой, либо одна строка "Services" на всю сумму.
func buildItemsFromExtraction(parsed models.ParsedExtraction) []models.DummyInvoiceItem {
	var items []models.DummyInvoiceItem
	if len(parsed.Jobs) > 0 {
		unit := decimal.Zero
		if parsed.Amount != nil {
			unit = money.Quantize(parsed.Amount.Div(decimal.NewFromInt(int64(len(parsed.Jobs)))))
		}
		for _, job := range parsed.Jobs {
			// Обрезка по рунам, чтобы не разорвать многобайтовый символ
			desc := job
			if runes := []rune(desc); len(runes) > 200 {
				desc = string(runes[:200])
			}
			items = append(items, models.DummyInvoiceItem{
				Description: desc,
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   unit,
			})
		}
	} else if parsed.Amount != nil {
		items = append(items, models.DummyInvoiceItem{
			Description: "Services",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   money.Quantize(*parsed.Amount),
		})
	}
	return items
}

// parseDueDate берёт первую строку-кандидат, чьи первые десять символов
// разбираются как календарная дата ISO; остальные игнорируются.
func parseDueDate(candidates []string) *time.Time {
	for _, raw := range candidates {
		if len(raw) < 10 {
			continue
		}
		if d, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return &d
		}
	}
	return nil
}
