// Package list реализует HTTP-обработчик списка заказчиков.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
)

// Handler обрабатывает запросы списка заказчиков.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка заказчиков.
type Service interface {
	List(ctx context.Context, userID int64, limit, offset int) ([]*models.Client, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список заказчиков
// @Description Возвращает заказчиков текущего пользователя.
// @Tags Clients
// @Produce  json
// @Param limit query int false "Размер страницы, не больше 100"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.OKResponse "Список заказчиков"
// @Security BearerAuth
// @Router /clients [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.client.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var limit, offset int
	var err error
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid query parameters"))
			return
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid query parameters"))
			return
		}
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	clients, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		log.Error("failed to list clients", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not list clients")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"clients": clients,
		"count":   len(clients),
	}))
}
