// Package metrics содержит метрики Prometheus сервиса.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder собирает метрики активаций и запросов к PayPal.
type Recorder struct {
	activations      *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		activations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "userbase",
			Name:      "activations_total",
			Help:      "Subscription activation attempts by result.",
		}, []string{"result"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "userbase",
			Name:      "paypal_request_duration_seconds",
			Help:      "Duration of PayPal subscription lookups.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
}

// ObserveActivation учитывает результат активации: "activated", "noop" или код ошибки.
func (r *Recorder) ObserveActivation(result string) {
	r.activations.WithLabelValues(result).Inc()
}

// ObserveUpstream учитывает длительность запроса к PayPal.
func (r *Recorder) ObserveUpstream(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.upstreamDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
