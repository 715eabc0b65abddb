// Package webhook реализует HTTP-обработчик событий платёжных провайдеров.
// Подпись запроса проверяется до разбора тела, подделка даёт 400 без
// обращения к базе. Неизвестные события подтверждаются ответом 200,
// чтобы провайдер не повторял доставку.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/errs"
	"github.com/invoiq/invoiq/internal/lib/sl"
)

// Тела вебхуков небольшие, лимит отсекает мусорные запросы.
const maxBodyBytes = 1 << 20

// Handler обрабатывает вебхуки платёжных провайдеров.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс обработки события провайдера.
type Service interface {
	ProcessEvent(ctx context.Context, provider string, body []byte, signature string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func signatureHeader(r *http.Request, provider string) string {
	if provider == "stripe" {
		return r.Header.Get("Stripe-Signature")
	}
	return r.Header.Get("X-Paystack-Signature")
}

// ServeHTTP godoc
// @Summary Вебхук провайдера
// @Description Принимает события paystack и stripe. Запрос с неверной подписью отклоняется.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param provider path string true "Провайдер (paystack или stripe)"
// @Success 200 {object} response.OKResponse "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Router /webhook/{provider} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	provider := chi.URLParam(r, "provider")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("provider", provider),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("could not read request body"))
		return
	}

	err = h.service.ProcessEvent(r.Context(), provider, body, signatureHeader(r, provider))
	if err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		if errors.Is(err, errs.ErrUnauthorized) || errors.Is(err, errs.ErrValidation) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid webhook request"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process event"))
		return
	}

	log.Info("webhook event processed")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "received",
	}))
}
