package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	InvalidRows.Inc()
	RefreshesTotal.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "segments_invalid_rows_total")
	assert.Contains(t, string(body), `segments_refreshes_total{status="success"}`)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(MembershipChanges.WithLabelValues("add"))
	MembershipChanges.WithLabelValues("add").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(MembershipChanges.WithLabelValues("add")))
}
