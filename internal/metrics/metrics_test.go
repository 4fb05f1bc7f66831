package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveBackend_CountsByOpAndStatus(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.ObserveBackend("companies.list", 200, 30*time.Millisecond)
	m.ObserveBackend("companies.list", 200, 10*time.Millisecond)
	m.ObserveBackend("companies.list", 0, time.Second)
	m.ObserveBackend("", 500, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("companies.list", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("companies.list", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequests.WithLabelValues("unknown", "500")))
	require.Equal(t, 2, testutil.CollectAndCount(m.BackendDuration))
}

func TestSessionEvent(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.SessionEvent("login", "ok")
	m.SessionEvent("login", "ok")
	m.SessionEvent("expire", "ok")

	require.Equal(t, 2.0, testutil.ToFloat64(m.SessionTransitions.WithLabelValues("login", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionTransitions.WithLabelValues("expire", "ok")))
}

func TestNilMetrics_NoPanic(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveBackend("x", 200, time.Millisecond)
		m.SessionEvent("login", "ok")
	})
}
