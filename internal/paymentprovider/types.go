// Package paymentprovider содержит клиенты платёжных провайдеров Paystack
// и Stripe за общим интерфейсом. Клиент без секретного ключа работает
// в деградированном режиме и выдаёт стабовые ссылки — только для dev/test.
package paymentprovider

import "github.com/shopspring/decimal"

// LinkRequest — параметры создания платёжной ссылки.
type LinkRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	Description string
	CallbackURL string
}

// Link — созданная платёжная ссылка. Reference — идентификатор, по
// которому платёж ищется при верификации и в вебхуках: для Paystack это
// наша ссылка, для Stripe — идентификатор checkout-сессии.
type Link struct {
	URL       string
	Reference string
}

// VerifyResult — результат проверки платежа у провайдера.
// SubscriptionID заполняется, когда провайдер завёл собственную
// подписку: именно он приходит в событиях её отключения.
type VerifyResult struct {
	Paid           bool
	Reference      string
	SubscriptionID string
}
