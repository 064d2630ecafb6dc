package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "trailkeeper"

// Metrics holds the collectors updated by a Tracker.
type Metrics struct {
	readings     prometheus.Counter
	rejected     prometheus.Counter
	trailSize    prometheus.Gauge
	identityInfo *prometheus.GaugeVec
}

// NewMetrics registers the tracker collectors on reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		readings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "readings_total",
			Help:      "Location readings recorded into the trail.",
		}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "readings_rejected_total",
			Help:      "Location readings rejected by validation.",
		}),
		trailSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "trail_size",
			Help:      "Entries currently held in the trail buffer.",
		}),
		identityInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "identity_info",
			Help:      "Set to 1 for the source the device identity was resolved from.",
		}, []string{"source"}),
	}
}

func (m *Metrics) observeReading(size int) {
	m.readings.Inc()
	m.trailSize.Set(float64(size))
}

func (m *Metrics) observeRejected() {
	m.rejected.Inc()
}

func (m *Metrics) observeSize(size int) {
	m.trailSize.Set(float64(size))
}

func (m *Metrics) observeIdentity(source string) {
	m.identityInfo.Reset()
	m.identityInfo.WithLabelValues(source).Set(1)
}
