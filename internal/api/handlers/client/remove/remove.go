// Package remove реализует HTTP-обработчик удаления заказчика.
package remove

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
)

// Handler обрабатывает запросы на удаление заказчика.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления заказчика.
type Service interface {
	Remove(ctx context.Context, userID, clientID int64) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить заказчика
// @Description Удаляет заказчика текущего пользователя. Счета заказчика удаляются каскадно.
// @Tags Clients
// @Produce  json
// @Param id path int true "ID заказчика"
// @Success 200 {object} response.OKResponse "Заказчик удалён"
// @Failure 404 {object} response.ErrorResponse "Заказчик не найден"
// @Security BearerAuth
// @Router /clients/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.client.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	clientID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid client id"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Remove(r.Context(), userID, clientID); err != nil {
		log.Error("failed to remove client", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not remove client")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("client removed", slog.Int64("client_id", clientID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted_id": clientID,
	}))
}
