// Package cancel реализует HTTP-обработчик отмены pro-подписки.
// Отмена не отзывает оплаченный период, подписка доживает до конца срока.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
)

// Handler обрабатывает запросы отмены подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики отмены подписки.
type Service interface {
	Cancel(ctx context.Context, userID int64) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Помечает pro-подписку отменённой. Доступ сохраняется до конца оплаченного периода.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.OKResponse "Подписка отменена"
// @Failure 404 {object} response.ErrorResponse "Активной подписки нет"
// @Security BearerAuth
// @Router /subscription [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Cancel(r.Context(), userID); err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		code, msg := response.StatusFromError(err, "could not cancel subscription")
		w.WriteHeader(code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("subscription cancelled", slog.Int64("user_id", userID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"cancelled": true,
	}))
}
