// metrics — prometheus-метрики фронтенда: исходящие вызовы бэкенда и переходы сессии.
//
// Все методы nil-safe: компоненты без метрик (тесты, утилиты) передают nil.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "waste_directory"

// BackendBuckets — бакеты латентности REST-бэкенда, секунды.
var BackendBuckets = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type Metrics struct {
	// BackendRequests — исходящие запросы по операции и статусу ("error" для сетевых отказов).
	BackendRequests *prometheus.CounterVec

	BackendDuration *prometheus.HistogramVec

	// SessionTransitions — login/register/logout/expire/restore по исходу.
	SessionTransitions *prometheus.CounterVec
}

// New регистрирует метрики в reg. reg == nil — prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		BackendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Outgoing backend requests by operation and status",
			},
			[]string{"op", "status"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Outgoing backend request latency by operation",
				Buckets:   BackendBuckets,
			},
			[]string{"op"},
		),
		SessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session transitions by event and outcome",
			},
			[]string{"event", "outcome"},
		),
	}
}

// ObserveBackend фиксирует завершённый исходящий запрос. status == 0 — ответа не было.
func (m *Metrics) ObserveBackend(op string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}

	code := "error"
	if status != 0 {
		code = strconv.Itoa(status)
	}

	m.BackendRequests.WithLabelValues(op, code).Inc()
	m.BackendDuration.WithLabelValues(op).Observe(dur.Seconds())
}

// SessionEvent фиксирует переход сессии.
func (m *Metrics) SessionEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(event, outcome).Inc()
}
