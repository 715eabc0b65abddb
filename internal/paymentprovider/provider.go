package paymentprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/invoiq/invoiq/internal/lib/errs"
)

// Имена поддерживаемых провайдеров.
const (
	Paystack = "paystack"
	Stripe   = "stripe"
)

// Provider — общий интерфейс платёжного провайдера.
type Provider interface {
	Name() string
	InitializeLink(ctx context.Context, req LinkRequest) (*Link, error)
	VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error)
}

// Parse проверяет имя провайдера.
func Parse(name string) (string, error) {
	switch strings.ToLower(name) {
	case Paystack:
		return Paystack, nil
	case Stripe:
		return Stripe, nil
	default:
		return "", fmt.Errorf("unknown payment provider %q: %w", name, errs.ErrValidation)
	}
}

// DefaultFor выбирает провайдера по валюте: найры идут через Paystack,
// остальные валюты — через Stripe.
func DefaultFor(currency string) string {
	if strings.EqualFold(currency, "NGN") {
		return Paystack
	}
	return Stripe
}

// Registry хранит сконфигурированных провайдеров по имени.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry собирает реестр из переданных провайдеров.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get возвращает провайдера по имени.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("payment provider %q is not configured: %w", name, errs.ErrValidation)
	}
	return p, nil
}
