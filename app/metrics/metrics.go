package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vodcomb"

// Metrics holds the poller's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	cycles              *prometheus.CounterVec
	lookups             *prometheus.CounterVec
	consecutiveFailures prometheus.Gauge
	recorded            prometheus.Counter
	tokenRefreshes      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_lookups_total",
			Help:      "Helix video lookups by result.",
		}, []string{"result"}),
		consecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Current consecutive failed video lookups.",
		}),
		recorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vods_recorded_total",
			Help:      "VODs newly recorded.",
		}),
		tokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "App access token exchanges.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.cycles, m.lookups, m.consecutiveFailures, m.recorded, m.tokenRefreshes)
	}
	return m
}

func (m *Metrics) CycleFinished(result string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
}

func (m *Metrics) LookupFinished(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetConsecutiveFailures(n int) {
	if m == nil {
		return
	}
	m.consecutiveFailures.Set(float64(n))
}

func (m *Metrics) VodRecorded() {
	if m == nil {
		return
	}
	m.recorded.Inc()
}

// TokenRefreshed satisfies auth.RefreshObserver.
func (m *Metrics) TokenRefreshed() {
	if m == nil {
		return
	}
	m.tokenRefreshes.Inc()
}
