// Package list реализует HTTP-обработчик списка счетов с фильтрами и
// курсорной пагинацией. Идентификатор последнего счёта страницы
// возвращается в заголовке X-Next-Cursor.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
)

// Handler обрабатывает запросы списка счетов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка счетов.
type Service interface {
	List(ctx context.Context, userID int64, filter models.InvoiceFilter) ([]*models.Invoice, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func parseFilter(r *http.Request) (models.InvoiceFilter, error) {
	var filter models.InvoiceFilter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.ClientID = &id
	}
	if v := q.Get("due_from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, err
		}
		filter.DueFrom = &d
	}
	if v := q.Get("due_to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, err
		}
		filter.DueTo = &d
	}
	if v := q.Get("cursor"); v != "" {
		c, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.Cursor = &c
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Offset = n
	}
	return filter, nil
}

// ServeHTTP godoc
// @Summary Список счетов
// @Description Возвращает счета текущего пользователя по возрастанию ID. Заголовок X-Next-Cursor содержит курсор следующей страницы.
// @Tags Invoices
// @Produce  json
// @Param status query string false "Фильтр по статусу"
// @Param client_id query int false "Фильтр по заказчику"
// @Param due_from query string false "Срок оплаты от (2006-01-02)"
// @Param due_to query string false "Срок оплаты до (2006-01-02)"
// @Param cursor query int false "Курсор страницы"
// @Param limit query int false "Размер страницы, не больше 100"
// @Success 200 {object} response.OKResponse "Список счетов"
// @Security BearerAuth
// @Router /invoices [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoice.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter, err := parseFilter(r)
	if err != nil {
		log.Error("failed to parse query params", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid query parameters"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	invoices, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		log.Error("failed to list invoices", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not list invoices")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	if len(invoices) > 0 {
		last := invoices[len(invoices)-1]
		w.Header().Set("X-Next-Cursor", strconv.FormatInt(last.ID, 10))
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"invoices": invoices,
		"count":    len(invoices),
	}))
}
