package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/chat/:peerId", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/chat/:peerId", "200"))
	for _, peer := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/"+peer, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/chat/:peerId", "200"))

	assert.Equal(t, 3.0, after-before)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(payments.WithLabelValues("basic", "completed"))
	RecordPayment("basic", "completed")
	assert.Equal(t, 1.0, testutil.ToFloat64(payments.WithLabelValues("basic", "completed"))-before)

	q := testutil.ToFloat64(quotaRejections)
	RecordQuotaRejection()
	assert.Equal(t, 1.0, testutil.ToFloat64(quotaRejections)-q)
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordSwipe("like")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tembichat_match_swipes_total")
}
