// Package me реализует HTTP-обработчик профиля текущего пользователя.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
)

// Handler обрабатывает запросы профиля текущего пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики профиля.
type Service interface {
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Description Возвращает профиль пользователя из JWT-токена.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.OKResponse "Профиль пользователя"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(int64)
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		status, msg := response.StatusFromError(err, "could not load user")
		w.WriteHeader(status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(user))
}
