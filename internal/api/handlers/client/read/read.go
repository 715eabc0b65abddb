// Package read реализует HTTP-обработчик получения заказчика по ID.
package read

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
	"github.com/invoiq/invoiq/internal/models"
)

// Handler обрабатывает запросы на получение заказчика.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения заказчика.
type Service interface {
	Read(ctx context.Context, userID, clientID int64) (*models.Client, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить заказчика
// @Description Возвращает заказчика текущего пользователя по идентификатору.
// @Tags Clients
// @Produce  json
// @Param id path int true "ID заказчика"
// @Success 200 {object} response.OKResponse "Заказчик"
// @Failure 404 {object} response.ErrorResponse "Заказчик не найден"
// @Security BearerAuth
// @Router /clients/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.client.read"
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

	client, err := h.service.Read(r.Context(), userID, clientID)
	if err != nil {
		log.Error("failed to read client", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not read client")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(client))
}
