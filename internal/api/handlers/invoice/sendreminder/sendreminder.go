// Package sendreminder реализует HTTP-обработчик постановки напоминания
// о счёте в очередь отправки.
package sendreminder

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
)

// Handler обрабатывает запросы на отправку напоминания.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики напоминаний.
type Service interface {
	Send(ctx context.Context, userID, invoiceID int64) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отправить напоминание по счёту
// @Description Ставит письмо-напоминание заказчику в очередь. Черновик переводится в статус sent.
// @Tags Invoices
// @Produce  json
// @Param invoice_id query int true "ID счёта"
// @Success 200 {object} response.OKResponse "Напоминание поставлено в очередь"
// @Failure 404 {object} response.ErrorResponse "Счёт не найден"
// @Failure 422 {object} response.ErrorResponse "У заказчика нет почты"
// @Security BearerAuth
// @Router /send-reminder [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoice.sendreminder"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	invoiceID, err := strconv.ParseInt(r.URL.Query().Get("invoice_id"), 10, 64)
	if err != nil {
		log.Error("failed to decode invoice_id from query", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid invoice id"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Send(r.Context(), userID, invoiceID); err != nil {
		log.Error("failed to queue reminder", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not queue reminder")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("reminder queued", slog.Int64("invoice_id", invoiceID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"invoice_id": invoiceID,
		"queued":     true,
	}))
}
