// Package extract реализует HTTP-обработчик извлечения данных счёта из
// свободного текста или скриншота. Обработчик доступен без
// аутентификации, тогда лимит запросов считается по адресу клиента.
package extract

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
)

// Изображения больше этого размера отклоняются до обращения к модели.
const maxUploadBytes = 10 << 20

// Handler управляет HTTP-запросами на извлечение.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики извлечения.
type Service interface {
	Extract(ctx context.Context, userID *int64, clientKey, text string,
		imageBytes []byte, imageMime string) (*models.Extraction, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// clientKey возвращает адрес клиента для подсчёта лимита: первый адрес
// из X-Forwarded-For, иначе RemoteAddr без порта.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}

// ServeHTTP godoc
// @Summary Извлечь данные счёта
// @Description Разбирает текст или скриншот через языковую модель и сохраняет результат. Лимит 10 запросов в минуту.
// @Tags Extractions
// @Accept  multipart/form-data
// @Produce  json
// @Param text formData string false "Свободный текст"
// @Param file formData file false "Скриншот"
// @Success 201 {object} response.OKResponse "Сохранённое извлечение"
// @Failure 422 {object} response.ErrorResponse "Пустой запрос"
// @Failure 429 {object} response.ErrorResponse "Превышен лимит запросов"
// @Failure 502 {object} response.ErrorResponse "Модель недоступна"
// @Router /extract-job-details [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.extraction.extract"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		log.Error("failed to parse multipart form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid multipart form"))
		return
	}
	text := r.FormValue("text")

	var imageBytes []byte
	var imageMime string
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		imageBytes, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			log.Error("failed to read uploaded file", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("could not read uploaded file"))
			return
		}
		imageMime = header.Header.Get("Content-Type")
		if imageMime == "" {
			imageMime = "image/png"
		}
	}

	var userID *int64
	if id, ok := r.Context().Value(middlewarectx.UserID).(int64); ok {
		userID = &id
	}

	extraction, err := h.service.Extract(r.Context(), userID, clientKey(r), text, imageBytes, imageMime)
	if err != nil {
		log.Error("failed to extract invoice data", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not extract invoice data")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("extraction saved", slog.Int64("extraction_id", extraction.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(extraction))
}
