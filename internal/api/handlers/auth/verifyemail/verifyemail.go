// Package verifyemail реализует HTTP-обработчик подтверждения почты по
// токену из письма.
package verifyemail

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
)

// Handler обрабатывает запросы подтверждения почты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики подтверждения почты.
type Service interface {
	VerifyEmail(ctx context.Context, token string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтвердить почту
// @Description Подтверждает почту по токену из письма. Просроченный или чужой токен даёт 404.
// @Tags Auth
// @Produce  json
// @Param token query string true "Токен подтверждения"
// @Success 200 {object} response.OKResponse "Почта подтверждена"
// @Failure 404 {object} response.ErrorResponse "Токен не найден или просрочен"
// @Router /auth/verify-email [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verifyemail"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing token"))
		return
	}

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		log.Error("failed to verify email", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not verify email")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("email verified")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"verified": true,
	}))
}
