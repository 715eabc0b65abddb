// Package verify реализует HTTP-обработчик проверки оплаты подписки у
// провайдера и активации pro-статуса.
package verify

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
	"github.com/invoiq/invoiq/internal/services/subscription"
)

// Handler управляет HTTP-запросами на проверку оплаты подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики проверки оплаты.
type Service interface {
	Verify(ctx context.Context, userID int64, req models.DummySubscriptionVerify) (*subscription.Status, error)
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
// @Summary Проверить оплату подписки
// @Description Сверяет платёж с провайдером и при подтверждении активирует pro-подписку на 30 дней.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummySubscriptionVerify true "Ссылка на платёж"
// @Success 200 {object} response.OKResponse "Статус подписки"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 422 {object} response.ErrorResponse "Оплата не подтверждена"
// @Security BearerAuth
// @Router /subscription/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscriptionVerify
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

	status, err := h.service.Verify(r.Context(), userID, req)
	if err != nil {
		log.Error("failed to verify subscription payment", sl.Err(err))
		code, msg := response.StatusFromError(err, "could not verify payment")
		w.WriteHeader(code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("subscription payment verified", slog.Int64("user_id", userID))
	render.JSON(w, r, response.OKWithData(status))
}
