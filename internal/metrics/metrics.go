// Package metrics объявляет счётчики Prometheus, публикуемые на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InvoicesCreated считает успешно зафиксированные счета.
	InvoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoiq",
		Name:      "invoices_created_total",
		Help:      "Total number of invoices created",
	})

	// RemindersQueued считает напоминания, поставленные в очередь вручную.
	RemindersQueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoiq",
		Name:      "reminders_queued_total",
		Help:      "Total number of invoice reminders queued",
	})
)
