package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "drugname2inchi"

//Metrics groups the collectors updated by the PubChem client and the converter
type Metrics struct {
	Requests  *prometheus.CounterVec
	Retries   prometheus.Counter
	Backoff   prometheus.Gauge
	Converted *prometheus.CounterVec
}

//New creates the collectors and registers them on reg. A nil reg leaves them
//unregistered, which is what tests and library callers without a registry want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubchem",
			Name:      "requests_total",
			Help:      "PubChem requests by HTTP status code.",
		}, []string{"code"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubchem",
			Name:      "retries_total",
			Help:      "Requests retried after a 503 answer.",
		}),
		Backoff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pubchem",
			Name:      "backoff_seconds",
			Help:      "Current backoff delay of the last client that made a request.",
		}),
		Converted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "converter",
			Name:      "names_total",
			Help:      "Drug names converted, by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Retries, m.Backoff, m.Converted)
	}
	return m
}

// ObserveRequest counts a request by its status code, 0 meaning a transport error
func (m *Metrics) ObserveRequest(code int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveRetry(backoffSeconds float64) {
	if m == nil {
		return
	}
	m.Retries.Inc()
	m.Backoff.Set(backoffSeconds)
}

func (m *Metrics) ObserveBackoff(backoffSeconds float64) {
	if m == nil {
		return
	}
	m.Backoff.Set(backoffSeconds)
}

// ObserveConversion counts a converted name as "ok", "empty" or "error"
func (m *Metrics) ObserveConversion(outcome string) {
	if m == nil {
		return
	}
	m.Converted.WithLabelValues(outcome).Inc()
}
