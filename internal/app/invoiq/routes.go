// Package invoiq предоставляет маршруты для основного приложения.
package invoiq

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	httpSwagger "github.com/swaggo/http-swagger"

	authlogin "github.com/invoiq/invoiq/internal/api/handlers/auth/login"
	authme "github.com/invoiq/invoiq/internal/api/handlers/auth/me"
	authregister "github.com/invoiq/invoiq/internal/api/handlers/auth/register"
	authresend "github.com/invoiq/invoiq/internal/api/handlers/auth/resend"
	authverify "github.com/invoiq/invoiq/internal/api/handlers/auth/verifyemail"
	clientcreate "github.com/invoiq/invoiq/internal/api/handlers/client/create"
	clientlist "github.com/invoiq/invoiq/internal/api/handlers/client/list"
	clientread "github.com/invoiq/invoiq/internal/api/handlers/client/read"
	clientremove "github.com/invoiq/invoiq/internal/api/handlers/client/remove"
	clientupdate "github.com/invoiq/invoiq/internal/api/handlers/client/update"
	extractionextract "github.com/invoiq/invoiq/internal/api/handlers/extraction/extract"
	extractionread "github.com/invoiq/invoiq/internal/api/handlers/extraction/read"
	"github.com/invoiq/invoiq/internal/api/handlers/health"
	invoicecreate "github.com/invoiq/invoiq/internal/api/handlers/invoice/create"
	invoicegenerate "github.com/invoiq/invoiq/internal/api/handlers/invoice/generate"
	invoicelist "github.com/invoiq/invoiq/internal/api/handlers/invoice/list"
	invoiceread "github.com/invoiq/invoiq/internal/api/handlers/invoice/read"
	invoiceremove "github.com/invoiq/invoiq/internal/api/handlers/invoice/remove"
	invoicesendreminder "github.com/invoiq/invoiq/internal/api/handlers/invoice/sendreminder"
	invoiceupdate "github.com/invoiq/invoiq/internal/api/handlers/invoice/update"
	paymenthistory "github.com/invoiq/invoiq/internal/api/handlers/payment/history"
	paymentwebhook "github.com/invoiq/invoiq/internal/api/handlers/payment/webhook"
	subscriptioncancel "github.com/invoiq/invoiq/internal/api/handlers/subscription/cancel"
	subscriptioncreate "github.com/invoiq/invoiq/internal/api/handlers/subscription/create"
	subscriptionstatus "github.com/invoiq/invoiq/internal/api/handlers/subscription/status"
	subscriptionverify "github.com/invoiq/invoiq/internal/api/handlers/subscription/verify"
	"github.com/invoiq/invoiq/internal/api/middlewarectx"
	"github.com/invoiq/invoiq/internal/cache"
	"github.com/invoiq/invoiq/internal/lib/jwt"
	authservice "github.com/invoiq/invoiq/internal/services/auth"
	clientservice "github.com/invoiq/invoiq/internal/services/client"
	extractionservice "github.com/invoiq/invoiq/internal/services/extraction"
	invoiceservice "github.com/invoiq/invoiq/internal/services/invoice"
	paymentservice "github.com/invoiq/invoiq/internal/services/payment"
	reminderservice "github.com/invoiq/invoiq/internal/services/reminder"
	subscriptionservice "github.com/invoiq/invoiq/internal/services/subscription"
	"github.com/invoiq/invoiq/internal/storage/repository"
)

type routeDeps struct {
	auth         *authservice.Service
	clients      *clientservice.Service
	invoices     *invoiceservice.Service
	extractions  *extractionservice.Service
	reminders    *reminderservice.Service
	subscription *subscriptionservice.Service
	webhooks     *paymentservice.WebhookService
	jwtMaker     jwt.Maker
	storage      *repository.Storage
	rabbit       *amqp.Connection
	cache        *cache.Cache
	uploadsDir   string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps *routeDeps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.RateLimitMiddleware(logger),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", authregister.New(logger, deps.auth).ServeHTTP)
		r.Post("/auth/login", authlogin.New(logger, deps.auth).ServeHTTP)
		r.Get("/auth/verify-email", authverify.New(logger, deps.auth).ServeHTTP)
		r.Post("/auth/resend-verification", authresend.New(logger, deps.auth).ServeHTTP)

		// Извлечение доступно и гостям, но узнаёт пользователя по токену
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.OptionalJWTMiddleware(logger, deps.jwtMaker))
			r.Post("/extract-job-details", extractionextract.New(logger, deps.extractions).ServeHTTP)
		})

		// Вебхуки провайдеров проверяют подпись сами
		r.Post("/webhook/{provider}", paymentwebhook.New(logger, deps.webhooks).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(logger, deps.jwtMaker))
			r.Get("/auth/me", authme.New(logger, deps.auth).ServeHTTP)

			// Всё остальное требует подтверждённой почты
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.VerifiedUserMiddleware(logger, deps.storage))

				r.Post("/clients", clientcreate.New(logger, deps.clients).ServeHTTP)
				r.Get("/clients", clientlist.New(logger, deps.clients).ServeHTTP)
				r.Get("/clients/{id}", clientread.New(logger, deps.clients).ServeHTTP)
				r.Put("/clients/{id}", clientupdate.New(logger, deps.clients).ServeHTTP)
				r.Delete("/clients/{id}", clientremove.New(logger, deps.clients).ServeHTTP)

				r.Post("/invoices", invoicecreate.New(logger, deps.invoices).ServeHTTP)
				r.Get("/invoices", invoicelist.New(logger, deps.invoices).ServeHTTP)
				r.Get("/invoices/{id}", invoiceread.New(logger, deps.invoices).ServeHTTP)
				r.Put("/invoices/{id}", invoiceupdate.New(logger, deps.invoices).ServeHTTP)
				r.Delete("/invoices/{id}", invoiceremove.New(logger, deps.invoices).ServeHTTP)
				r.Post("/generate-invoice", invoicegenerate.New(logger, deps.invoices).ServeHTTP)
				r.Post("/send-reminder", invoicesendreminder.New(logger, deps.reminders).ServeHTTP)

				r.Get("/extractions/{id}", extractionread.New(logger, deps.extractions).ServeHTTP)

				r.Post("/subscription/create", subscriptioncreate.New(logger, deps.subscription).ServeHTTP)
				r.Post("/subscription/verify", subscriptionverify.New(logger, deps.subscription).ServeHTTP)
				r.Get("/subscription/status", subscriptionstatus.New(logger, deps.subscription).ServeHTTP)
				r.Delete("/subscription", subscriptioncancel.New(logger, deps.subscription).ServeHTTP)

				r.Get("/payments/history", paymenthistory.New(logger, deps.subscription).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, deps.storage, deps.rabbit, deps.cache).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(deps.uploadsDir))))
}
