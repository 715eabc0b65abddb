// Package create реализует HTTP-обработчик создания счёта.
//
// Handler принимает JSON-запрос с данными счёта, валидирует их, извлекает
// идентификатор пользователя из контекста и вызывает сборку счёта через
// сервис. Ключ идемпотентности принимается в заголовке Idempotency-Key
// или в теле запроса, значение из тела имеет приоритет.
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

// Handler управляет HTTP-запросами на создание счетов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания счёта.
type Service interface {
	Create(ctx context.Context, userID int64, req models.DummyInvoice) (*models.InvoiceDetails, error)
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
// @Summary Создать новый счёт
// @Description Создает счёт для текущего пользователя. Поддерживает идемпотентный повтор по ключу Idempotency-Key.
// @Tags Invoices
// @Accept  json
// @Produce  json
// @Param request body models.DummyInvoice true "Данные нового счёта"
// @Param Idempotency-Key header string false "Ключ идемпотентности"
// @Success 201 {object} response.OKResponse "Созданный счёт"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Заказчик или извлечение не найдены"
// @Failure 409 {object} response.ErrorResponse "Дубликат номера счёта"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или сверки сумм"
// @Security BearerAuth
// @Router /invoices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoice.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyInvoice
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" && req.IdempotencyKey == nil {
		req.IdempotencyKey = &key
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

	details, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		log.Error("failed to create invoice", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not create invoice")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("invoice created", slog.Int64("invoice_id", details.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(details))
}
