// Package create реализует HTTP-обработчик создания платёжной ссылки
// pro-подписки.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
	"github.com/invoiq/invoiq/internal/services/subscription"
)

// Handler управляет HTTP-запросами на оформление подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики оформления подписки.
type Service interface {
	Create(ctx context.Context, userID int64, req models.DummySubscriptionCreate) (*subscription.Link, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оформить pro-подписку
// @Description Создает платёжную ссылку провайдера на 30-дневную pro-подписку. Тело запроса необязательно.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummySubscriptionCreate false "Провайдер и валюта"
// @Success 201 {object} response.OKResponse "Платёжная ссылка"
// @Failure 409 {object} response.ErrorResponse "Подписка уже активна"
// @Security BearerAuth
// @Router /subscription/create [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscriptionCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	link, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		log.Error("failed to create subscription link", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not create subscription link")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("subscription link created", slog.String("reference", link.Reference))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(link))
}
