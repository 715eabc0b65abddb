// Package sender собирает приложение отправки писем: напоминания об
// оплате и письма подтверждения почты из очередей RabbitMQ.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/invoiq/invoiq/internal/config"
	"github.com/invoiq/invoiq/internal/lib/smtp"
	"github.com/invoiq/invoiq/internal/rabbitmq"
	senderservice "github.com/invoiq/invoiq/internal/services/sender"
)

// App представляет приложение отправки писем.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New создает новый экземпляр приложения отправки писем.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetReminderQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.New(transport, cfg.FrontendURL, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run подписывается на очереди и отправляет письма до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, "invoices.reminders", a.senderService.SendInvoiceReminder)
	if err != nil {
		a.logger.Error("failed to start invoices.reminders consumer", slog.Any("err", err))
		return err
	}

	err = rabbitmq.ConsumerMessage(ctx, a.ch, "invoices.emails", a.senderService.SendVerificationEmail)
	if err != nil {
		a.logger.Error("failed to start invoices.emails consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
