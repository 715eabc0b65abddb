package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/invoiq/invoiq/internal/api/response"
	"github.com/invoiq/invoiq/internal/lib/jwt"
	"github.com/invoiq/invoiq/internal/lib/sl"
)

// TokenParser проверяет JWT и возвращает claims пользователя.
type TokenParser interface {
	ParseToken(tokenString string) (*jwt.CustomClaims, error)
}

// JWTMiddleware создает middleware аутентификации по заголовку Authorization.
// При успешной проверке кладёт в контекст UserID и Email.
func JWTMiddleware(log *slog.Logger, tokenMaker TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := tokenMaker.ParseToken(token)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, claims.UserID)
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTMiddleware создает middleware для открытых конечных точек,
// которым полезно знать пользователя. Валидный токен кладёт claims в
// контекст, отсутствие или порча токена не прерывают запрос.
func OptionalJWTMiddleware(log *slog.Logger, tokenMaker TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := tokenMaker.ParseToken(token)
			if err != nil {
				log.Warn("ignoring invalid token on public endpoint", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserID, claims.UserID)
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
