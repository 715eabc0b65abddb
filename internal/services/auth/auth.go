// Package auth содержит логику регистрации, входа и подтверждения почты.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/lib/jwt"
	"github.com/invoiq/invoiq/internal/lib/password"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/rabbitmq"
)

const verificationTTL = 24 * time.Hour

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	VerifyUserEmail(ctx context.Context, token string) error
	SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error
}

// Publisher публикует сообщения очереди писем.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Service отвечает за регистрацию, авторизацию и подтверждение почты.
type Service struct {
	users     UserRepository
	jwtMaker  jwt.Maker
	publisher Publisher
	log       *slog.Logger
}

// New создает новый экземпляр Service. Publisher может быть nil, тогда
// письма подтверждения не отправляются.
func New(users UserRepository, jwtMaker jwt.Maker, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		users:     users,
		jwtMaker:  jwtMaker,
		publisher: publisher,
		log:       log,
	}
}

// Register создает пользователя с хэшированным паролем и ставит в очередь
// письмо подтверждения. Недоставленное письмо регистрацию не отменяет,
// токен можно запросить повторно.
func (s *Service) Register(ctx context.Context, req models.DummyRegister) (*models.User, error) {
	const op = "services.auth.Register"

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token := uuid.NewString()
	expires := time.Now().UTC().Add(verificationTTL)
	user := models.User{
		Email:               req.Email,
		FullName:            req.FullName,
		PasswordHash:        hashed,
		IsActive:            true,
		VerificationToken:   &token,
		VerificationExpires: &expires,
	}

	id, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("registered new user", slog.Int64("user_id", id))

	s.queueVerificationEmail(req.Email, req.FullName, token)

	created, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// Login проверяет учётные данные и возвращает JWT вместе с пользователем.
// Несуществующая почта и неверный пароль дают одну и ту же ошибку.
func (s *Service) Login(ctx context.Context, req models.DummyLogin) (string, *models.User, error) {
	const op = "services.auth.Login"

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", nil, fmt.Errorf("%s: invalid credentials: %w", op, errs.ErrUnauthorized)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return "", nil, fmt.Errorf("%s: invalid credentials: %w", op, errs.ErrUnauthorized)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// VerifyEmail подтверждает почту по токену из письма.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	const op = "services.auth.VerifyEmail"

	if err := s.users.VerifyUserEmail(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResendVerification выпускает новый токен подтверждения и ставит письмо
// в очередь. Для уже подтверждённой почты возвращает конфликт.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	const op = "services.auth.ResendVerification"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.IsVerified {
		return fmt.Errorf("%s: email already verified: %w", op, errs.ErrConflict)
	}

	token := uuid.NewString()
	expires := time.Now().UTC().Add(verificationTTL)
	if err := s.users.SetVerificationToken(ctx, user.ID, token, expires); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.queueVerificationEmail(user.Email, user.FullName, token)
	return nil
}

// Me возвращает профиль текущего пользователя.
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	const op = "services.auth.Me"

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *Service) queueVerificationEmail(email string, fullName *string, token string) {
	if s.publisher == nil {
		return
	}
	msg := models.VerificationEmail{
		Email:    email,
		FullName: fullName,
		Token:    token,
	}
	if err := s.publisher.Publish(rabbitmq.RoutingKeyEmails, msg); err != nil {
		s.log.Warn("failed to queue verification email", sl.Err(err))
	}
}
