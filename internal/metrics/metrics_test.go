package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/webauth/pkg/identity"
)

func TestMetrics_CacheLookup(t *testing.T) {
	t.Parallel()

	m := New()
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)

	require.InDelta(t, 1, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")), 0)
}

func TestMetrics_FlowCompleted(t *testing.T) {
	t.Parallel()

	m := New()
	m.FlowCompleted(identity.ResponseTypeCode, "", 2*time.Second)
	m.FlowCompleted(identity.ResponseTypeCode, identity.ErrorCodeInvalidState, time.Second)

	require.InDelta(t, 1, testutil.ToFloat64(m.flows.WithLabelValues("code", "ok")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.flows.WithLabelValues("code", "invalid_state")), 0)
	require.Equal(t, 1, testutil.CollectAndCount(m.flowDuration))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.CacheLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `webauth_token_cache_lookups_total{result="hit"} 1`)
	require.Contains(t, string(body), "go_goroutines")
}
