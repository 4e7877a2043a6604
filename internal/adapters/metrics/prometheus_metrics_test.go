package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.RecordBootstrap("leaf", true)
	m.RecordBootstrap("leaf", false)
	m.RecordBootstrap("leaf", false)
	m.RecordPollAttempt("public/ca.crt", false)
	m.RecordPollAttempt("public/ca.crt", true)
	m.RecordPublished("public/ca.crt")
	m.RecordIssued(true)
	m.ObserveStep("leaf", "validate", 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.bootstraps.WithLabelValues("leaf", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.bootstraps.WithLabelValues("leaf", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollAttempts.WithLabelValues("public/ca.crt", "not_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("public/ca.crt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.issued.WithLabelValues("issued")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stepDuration))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)
	m.RecordBootstrap("authority", true)

	path := filepath.Join(t.TempDir(), "trustboot.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `trustboot_bootstrap_total{result="success",role="authority"} 1`)
}
