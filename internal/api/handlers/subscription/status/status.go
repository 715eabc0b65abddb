// Package status реализует HTTP-обработчик статуса pro-подписки.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/services/subscription"
)

// Handler обрабатывает запросы статуса подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики статуса подписки.
type Service interface {
	Read(ctx context.Context, userID int64) (*subscription.Status, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Description Возвращает статус pro-подписки текущего пользователя и число оставшихся дней.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.OKResponse "Статус подписки"
// @Security BearerAuth
// @Router /subscription/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
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

	status, err := h.service.Read(r.Context(), userID)
	if err != nil {
		log.Error("failed to read subscription status", sl.Err(err))
		code, msg := response.StatusFromError(err, "could not read subscription status")
		w.WriteHeader(code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(status))
}
