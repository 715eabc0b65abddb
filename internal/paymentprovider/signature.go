package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
)

// VerifySignature проверяет подпись тела вебхука. Paystack подписывает
// тело HMAC-SHA512, Stripe — HMAC-SHA256; в обоих случаях подпись
// передаётся hex-строкой и сравнивается за константное время.
func VerifySignature(provider, secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	var computed string
	switch provider {
	case Paystack:
		mac := hmac.New(sha512.New, []byte(secret))
		mac.Write(body)
		computed = hex.EncodeToString(mac.Sum(nil))
	case Stripe:
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		computed = hex.EncodeToString(mac.Sum(nil))
	default:
		return false
	}
	return hmac.Equal([]byte(computed), []byte(signature))
}
