package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/domain"
)

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveVerification(domain.SourcePublic, domain.StatusOK)
	m.ObserveVerification(domain.SourcePublic, domain.StatusOK)
	m.ObserveParentLoad("rejected")
	m.SubscriberJoined()
	m.SubscriberJoined()
	m.SubscriberLeft()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verifications.WithLabelValues("public", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParentLoads.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveSubscribers))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pcprep_verifications_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
