// Package models содержит доменные структуры системы выставления счетов,
// а также вспомогательные Dummy-типы для приёма данных из JSON-запросов
// до их валидации и преобразования.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
// Инвариант: IsPro=true подразумевает SubscriptionStatus="active"
// и непустую SubscriptionEndDate, кроме момента ручной деактивации.
type User struct {
	ID                     int64      `json:"id"`
	Email                  string     `json:"email"`
	FullName               *string    `json:"full_name,omitempty"`
	PasswordHash           string     `json:"-"`
	IsActive               bool       `json:"is_active"`
	IsVerified             bool       `json:"is_verified"`
	VerificationToken      *string    `json:"-"`
	VerificationExpires    *time.Time `json:"-"`
	BusinessName           *string    `json:"business_name,omitempty"`
	BusinessAddress        *string    `json:"business_address,omitempty"`
	IsPro                  bool       `json:"is_pro"`
	SubscriptionStatus     *string    `json:"subscription_status,omitempty"` // active, cancelled, expired, pending
	SubscriptionProvider   *string    `json:"subscription_provider,omitempty"`
	SubscriptionProviderID *string    `json:"-"`
	SubscriptionStartDate  *time.Time `json:"subscription_start_date,omitempty"`
	SubscriptionEndDate    *time.Time `json:"subscription_end_date,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
}

// DummyLogin используется для приёма учётных данных из JSON-запроса.
type DummyLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerificationEmail — сообщение очереди для письма подтверждения почты.
type VerificationEmail struct {
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
	Token    string  `json:"token"`
}
