// Package client содержит логику работы с заказчиками пользователя.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/invoiq/invoiq/internal/models"
)

// Repository описывает контракт хранилища заказчиков.
type Repository interface {
	CreateClient(ctx context.Context, client models.Client) (int64, error)
	GetClient(ctx context.Context, userID, clientID int64) (*models.Client, error)
	ListClients(ctx context.Context, userID int64, limit, offset int) ([]*models.Client, error)
	UpdateClient(ctx context.Context, client models.Client) error
	DeleteClient(ctx context.Context, userID, clientID int64) error
}

// Service реализует бизнес-логику работы с заказчиками.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create сохраняет нового заказчика текущего пользователя.
func (s *Service) Create(ctx context.Context, userID int64, req models.DummyClient) (*models.Client, error) {
	const op = "services.client.Create"

	id, err := s.repo.CreateClient(ctx, models.Client{
		UserID:  userID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new client", slog.Int64("client_id", id))

	created, err := s.repo.GetClient(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// Read возвращает заказчика текущего пользователя.
func (s *Service) Read(ctx context.Context, userID, clientID int64) (*models.Client, error) {
	const op = "services.client.Read"

	client, err := s.repo.GetClient(ctx, userID, clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return client, nil
}

// List возвращает заказчиков текущего пользователя постранично.
// Лимит ограничивается сотней записей.
func (s *Service) List(ctx context.Context, userID int64, limit, offset int) ([]*models.Client, error) {
	const op = "services.client.List"

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	clients, err := s.repo.ListClients(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clients, nil
}

// Update перезаписывает поля заказчика. Непереданные поля не меняются.
func (s *Service) Update(ctx context.Context, userID, clientID int64, req models.DummyClientUpdate) (*models.Client, error) {
	const op = "services.client.Update"

	current, err := s.repo.GetClient(ctx, userID, clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Email != nil {
		current.Email = req.Email
	}
	if req.Phone != nil {
		current.Phone = req.Phone
	}
	if req.Address != nil {
		current.Address = req.Address
	}

	if err := s.repo.UpdateClient(ctx, *current); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return current, nil
}

// Remove удаляет заказчика вместе с его счетами.
func (s *Service) Remove(ctx context.Context, userID, clientID int64) error {
	const op = "services.client.Remove"

	if err := s.repo.DeleteClient(ctx, userID, clientID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
