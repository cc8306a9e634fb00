package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.FetchRequests.WithLabelValues("db.netkeiba.com", "ok").Inc()
	m.FetchRequests.WithLabelValues("db.netkeiba.com", "ok").Inc()
	m.Commands.WithLabelValues("result", "line").Inc()

	require.Equal(t, 2.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues("db.netkeiba.com", "ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `keiba_fetch_requests_total{host="db.netkeiba.com",outcome="ok"} 2`)
	require.Contains(t, string(body), `keiba_chat_commands_total{command="result",source="line"} 1`)
}
