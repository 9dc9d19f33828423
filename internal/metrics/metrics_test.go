package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	m := New()

	m.RecordOperation("snippet", "create", "ok")
	m.RecordOperation("snippet", "create", "ok")
	m.RecordOperation("mode", "delete", "last_item_protected")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("snippet", "create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("mode", "delete", "last_item_protected")))
}

func TestRelayGauge(t *testing.T) {
	m := New()

	m.RelayConnected()
	m.RelayConnected()
	m.RelayDisconnected()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayConnections))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordOperation("snippet", "create", "ok")
		m.RecordDelivery("native", "pasted", time.Millisecond)
		m.RelayConnected()
		m.RelayDisconnected()
		m.RecordRelayMessage("insertPrompt", "outbound")
	})
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.RecordDelivery("element", "inserted", 80*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `snippet_picker_deliveries_total{result="inserted",target="element"} 1`))
}
