package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Exchanges       *prometheus.CounterVec
	ExchangeLatency *prometheus.HistogramVec
	ConfigSaves     prometheus.Counter
	ConfigLoads     *prometheus.CounterVec
	UpdatesTotal    prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = New()
		prometheus.MustRegister(
			global.Exchanges,
			global.ExchangeLatency,
			global.ConfigSaves,
			global.ConfigLoads,
			global.UpdatesTotal,
		)
	})
	return global
}

// New returns unregistered collectors, for tests that inspect counts in isolation.
func New() *Metrics {
	return &Metrics{
		Exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportchat",
			Name:      "exchanges_total",
			Help:      "Provider exchanges by provider and outcome",
		}, []string{"provider", "outcome"}),
		ExchangeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "supportchat",
			Name:      "exchange_duration_seconds",
			Help:      "Wall time of one provider exchange",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		ConfigSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "supportchat",
			Name:      "config_saves_total",
			Help:      "Total configuration writes to the key-value store",
		}),
		ConfigLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportchat",
			Name:      "config_loads_total",
			Help:      "Configuration loads by status (restored, defaulted, degraded)",
		}, []string{"status"}),
		UpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "supportchat",
			Name:      "telegram_updates_total",
			Help:      "Total telegram updates received",
		}),
	}
}
