package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newHTTPMetrics(prometheus.NewRegistry(), Config{ServiceName: "detailflow"})

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.GET("/api/jobs/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/api/jobs/:id", http.MethodGet, "204"))
	if got != 2 {
		t.Fatalf("expected 2 requests on the route template, got %v", got)
	}
}
