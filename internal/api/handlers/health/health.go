// Package health реализует HTTP-обработчик проверки живости сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/streadway/amqp"

	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/cache"
	"github.com/invoiq/invoiq/internal/storage/repository"
)

type Handler struct {
	log     *slog.Logger
	storage *repository.Storage
	rabbit  *amqp.Connection
	cache   *cache.Cache
}

func New(log *slog.Logger, storage *repository.Storage, rabbit *amqp.Connection, cache *cache.Cache) *Handler {
	return &Handler{
		log:     log,
		storage: storage,
		rabbit:  rabbit,
		cache:   cache,
	}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Description Возвращает ok, если сервис и его база данных доступны.
// @Tags Health
// @Produce  json
// @Success 200 {object} response.OKResponse "Сервис работает"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := h.storage.DB.PingContext(r.Context()); err != nil {
		h.log.Error("database ping failed", slog.String("op", op))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}
