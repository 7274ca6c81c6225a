package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest(200)
	m.ObserveRequest(503)
	m.ObserveRetry(0.4)
	m.ObserveConversion("ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("503")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Retries))
	assert.Equal(t, 0.4, testutil.ToFloat64(m.Backoff))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Converted.WithLabelValues("ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(200)
		m.ObserveRetry(1)
		m.ObserveBackoff(1)
		m.ObserveConversion("error")
	})
}
