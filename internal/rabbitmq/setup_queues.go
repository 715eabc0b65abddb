package rabbitmq

// ExchangeName — общий обменник всех событий напоминаний.
const ExchangeName = "invoices"

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetReminderQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "invoices.reminders", RoutingKey: "reminders"},
		{QueueName: "invoices.emails", RoutingKey: "emails"},
	}
}

// Ключи маршрутизации сообщений.
const (
	RoutingKeyReminders = "reminders"
	RoutingKeyEmails    = "emails"
)
