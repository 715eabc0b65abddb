// Package resend реализует HTTP-обработчик повторной отправки письма
// подтверждения почты.
package resend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
)

// Handler обрабатывает запросы повторной отправки письма.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики повторной отправки.
type Service interface {
	ResendVerification(ctx context.Context, email string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Request описывает тело запроса повторной отправки.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// ServeHTTP godoc
// @Summary Повторно отправить подтверждение
// @Description Выпускает новый токен и ставит письмо подтверждения в очередь.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Почта пользователя"
// @Success 200 {object} response.OKResponse "Письмо поставлено в очередь"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Почта уже подтверждена"
// @Router /auth/resend-verification [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resend"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		log.Error("failed to resend verification", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not resend verification")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	log.Info("verification email queued")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"sent": true,
	}))
}
