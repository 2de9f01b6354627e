package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsLabelByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	mh, err := RegisterMetrics(MetricsConfig{Registry: reg})
	require.NoError(t, err)

	router := NewRouter(&Handlers{Realm: "publish"}, zap.NewNop(), mh)

	for _, path := range []string{
		"/health_check",
		"/qmzyx/123456",
		"/qmzyx/999999",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	// Las rutas conocidas reportan su patrón; los 404 arbitrarios se
	// colapsan en un único label en vez de crear una serie por path.
	require.Contains(t, body, `path="/health_check"`)
	require.Contains(t, body, `path="unmatched"`)
	require.NotContains(t, body, "qmzyx")
}
