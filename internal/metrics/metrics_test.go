package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathLabels(t *testing.T) []string {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var paths []string
	for _, mf := range families {
		if mf.GetName() != "koru_http_requests_total" && mf.GetName() != "koru_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "path" {
					paths = append(paths, label.GetValue())
				}
			}
		}
	}
	return paths
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Middleware)
	router.Get("/auth/confirm-email/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	const secret = "eyJhbGciOiJIUzI1NiJ9.secret-email-token.sig"
	req := httptest.NewRequest(http.MethodGet, "/auth/confirm-email/"+secret, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	paths := pathLabels(t)
	assert.Contains(t, paths, "/auth/confirm-email/{token}")
	for _, path := range paths {
		assert.NotContains(t, path, secret)
	}
}

func TestMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Middleware)
	router.Get("/known", func(w http.ResponseWriter, r *http.Request) {})

	// Scanners probing random paths must not mint one label per path
	for _, path := range []string{"/.env", "/wp-admin/setup.php"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	paths := pathLabels(t)
	assert.Contains(t, paths, "unmatched")
	assert.NotContains(t, paths, "/.env")
	assert.NotContains(t, paths, "/wp-admin/setup.php")
}
