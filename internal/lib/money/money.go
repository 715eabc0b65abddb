// Package money реализует единое правило округления денежных сумм.
//
// Все суммы в системе хранятся с двумя знаками после запятой. Любая
// арифметика над деньгами обязана сначала квантовать операнды, а затем
// квантовать результат — так исключается дрейф плавающей точки и проверка
// subtotal + tax == total становится воспроизводимой.
package money

import "github.com/shopspring/decimal"

// Quantize округляет сумму до двух знаков после запятой (half-up).
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// QuantizePtr квантует значение по указателю; nil трактуется как 0.00.
func QuantizePtr(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero.Round(2)
	}
	return d.Round(2)
}

// Mul перемножает две суммы по общему правилу: квантовать каждый операнд,
// затем квантовать произведение.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return Quantize(Quantize(a).Mul(Quantize(b)))
}

// Sum складывает суммы, квантуя каждое слагаемое и итог.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(Quantize(v))
	}
	return Quantize(total)
}

// Equal сравнивает две суммы после квантования.
func Equal(a, b decimal.Decimal) bool {
	return Quantize(a).Equal(Quantize(b))
}
