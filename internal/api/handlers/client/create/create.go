// Package create реализует HTTP-обработчик создания заказчика.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
)

// Handler управляет HTTP-запросами на создание заказчика.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания заказчика.
type Service interface {
	Create(ctx context.Context, userID int64, req models.DummyClient) (*models.Client, error)
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
// @Summary Создать заказчика
// @Description Создает заказчика, привязанного к текущему пользователю.
// @Tags Clients
// @Accept  json
// @Produce  json
// @Param request body models.DummyClient true "Данные заказчика"
// @Success 201 {object} response.OKResponse "Созданный заказчик"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Security BearerAuth
// @Router /clients [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.client.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyClient
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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

	client, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		log.Error("failed to create client", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not create client")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("client created", slog.Int64("client_id", client.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(client))
}
