package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/invoiq/invoiq/internal/config"
	"github.com/invoiq/invoiq/internal/lib/sl"
)

// Transport открывает соединения с SMTP-сервером для писем InvoIQ:
// напоминаний заказчикам и подтверждений почты. Каждое письмо идёт
// через отдельное соединение, пула нет.
type Transport struct {
	host     string
	port     string
	username string
	password string
	log      *slog.Logger
}

// NewTransport создает транспорт из SMTP-настроек конфигурации.
func NewTransport(cfg *config.Config, log *slog.Logger) *Transport {
	return &Transport{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPass,
		log:      log,
	}
}

// From возвращает адрес отправителя для конверта и заголовка письма.
func (t *Transport) From() string {
	return t.username
}

// Connect устанавливает соединение, поднимает STARTTLS и, если задан
// пароль, проходит аутентификацию. Сервер без STARTTLS отвергается.
// Пустой пароль означает локальный релей без аутентификации.
func (t *Transport) Connect() (Client, error) {
	conn, err := net.Dial("tcp", net.JoinHostPort(t.host, t.port))
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		t.log.Error("failed to create SMTP client", sl.Err(err))
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	fail := func(msg string, err error) (Client, error) {
		t.log.Error(msg, sl.Err(err))
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.log.Error("SMTP server does not support STARTTLS")
		_ = client.Close()
		return nil, fmt.Errorf("smtp server does not support STARTTLS")
	}
	tlsConfig := &tls.Config{
		ServerName: t.host,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fail("failed to start TLS", err)
	}

	if t.password != "" {
		auth := smtp.PlainAuth("", t.username, t.password, t.host)
		if err = client.Auth(auth); err != nil {
			return fail("smtp auth failed", err)
		}
	}

	return &smtpConn{client: client}, nil
}

// smtpConn адаптирует *smtp.Client к интерфейсу Client.
type smtpConn struct {
	client *smtp.Client
}

func (c *smtpConn) Mail(from string) error        { return c.client.Mail(from) }
func (c *smtpConn) Rcpt(to string) error          { return c.client.Rcpt(to) }
func (c *smtpConn) Data() (io.WriteCloser, error) { return c.client.Data() }
func (c *smtpConn) Quit() error                   { return c.client.Quit() }
func (c *smtpConn) Close() error                  { return c.client.Close() }
