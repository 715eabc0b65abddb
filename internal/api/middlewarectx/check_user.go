package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/sl"
	"github.com/invoiq/invoiq/internal/models"
)

// UserService отдаёт пользователя для проверки его статуса.
type UserService interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// VerifiedUserMiddleware создает middleware, пропускающее только
// пользователей с подтверждённым email.
func VerifiedUserMiddleware(log *slog.Logger, users UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := r.Context().Value(UserID).(int64)
			if !ok || userID == 0 {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			model, err := users.GetUser(r.Context(), userID)
			if err != nil {
				log.Error("failed to get user", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if !model.IsVerified {
				log.Warn("email not verified, access denied", slog.Int64("user_id", userID))
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("email not verified, access denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
