// Package invoiq собирает основной HTTP-сервис: хранилище, кэш,
// брокер, платёжные провайдеры, экстрактор и все доменные сервисы.
package invoiq

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/invoiq/invoiq/internal/cache"
	"github.com/invoiq/invoiq/internal/config"
	"github.com/invoiq/invoiq/internal/extractor"
	"github.com/invoiq/invoiq/internal/filestore"
	"github.com/invoiq/invoiq/internal/lib/jwt"
	"github.com/invoiq/invoiq/internal/migrations"
	"github.com/invoiq/invoiq/internal/paymentprovider"
	"github.com/invoiq/invoiq/internal/rabbitmq"
	authservice "github.com/invoiq/invoiq/internal/services/auth"
	clientservice "github.com/invoiq/invoiq/internal/services/client"
	extractionservice "github.com/invoiq/invoiq/internal/services/extraction"
	invoiceservice "github.com/invoiq/invoiq/internal/services/invoice"
	paymentservice "github.com/invoiq/invoiq/internal/services/payment"
	reminderservice "github.com/invoiq/invoiq/internal/services/reminder"
	subscriptionservice "github.com/invoiq/invoiq/internal/services/subscription"
	"github.com/invoiq/invoiq/internal/storage/repository"
)

// App представляет основной HTTP-сервис.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New инициализирует зависимости и собирает приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetReminderQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	files, err := filestore.New(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return nil, err
	}

	providers := paymentprovider.NewRegistry(
		paymentprovider.NewPaystack(cfg.PaystackSecretKey, cfg.PaystackBaseURL),
		paymentprovider.NewStripe(cfg.StripeSecretKey),
	)
	extractorClient := extractor.New(cfg.OpenAIAPIKey, cfg.ExtractorModel, "")
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	webhookSecrets := map[string]string{
		paymentprovider.Paystack: cfg.PaystackWebhookSecret,
		paymentprovider.Stripe:   cfg.StripeWebhookSecret,
	}

	deps := &routeDeps{
		auth:         authservice.New(db, jwtMaker, publisher, logger),
		clients:      clientservice.New(db, logger),
		invoices:     invoiceservice.New(db, cacheRedis, files, providers, logger),
		extractions:  extractionservice.New(db, extractorClient, cacheRedis, logger),
		reminders:    reminderservice.New(db, publisher, cacheRedis, logger),
		subscription: subscriptionservice.New(db, providers, logger),
		webhooks:     paymentservice.NewWebhookService(db, webhookSecrets, logger),
		jwtMaker:     jwtMaker,
		storage:      db,
		rabbit:       conn,
		cache:        cacheRedis,
		uploadsDir:   files.Dir(),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, deps)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и корректно гасит его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		_ = a.db.DB.Close()
		return err
	}
}
