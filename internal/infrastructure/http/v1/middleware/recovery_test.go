package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"weighbridge/internal/infrastructure/http/v1/middleware"
	"weighbridge/pkg/logger"
)

func newRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	r := gin.New()
	r.Use(middleware.Trace(), middleware.Logger(log), middleware.ErrorHandler(), middleware.Recovery())
	return r, logs
}

func TestRecovery_LogsRouteAndEntry(t *testing.T) {
	r, logs := newRouter(t)
	r.POST("/api/v1/entries/:id/review", func(c *gin.Context) {
		panic("scale driver crashed")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/entries/e-42/review", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "scale driver crashed")

	recovered := logs.FilterMessage("panic recovered").All()
	require.Len(t, recovered, 1)
	fields := recovered[0].ContextMap()
	assert.Equal(t, "e-42", fields["entry_id"])
	assert.Equal(t, "/api/v1/entries/:id/review", fields["route"])
	assert.Equal(t, http.MethodPost, fields["method"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestLogger_CarriesInvoiceIDIntoServiceLogs(t *testing.T) {
	r, logs := newRouter(t)
	r.POST("/api/v1/invoices/:id/recompute", func(c *gin.Context) {
		logger.Info(c.Request.Context(), "invoice totals recomputed")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/invoices/inv-7/recompute", nil))
	require.Equal(t, http.StatusOK, w.Code)

	inner := logs.FilterMessage("invoice totals recomputed").All()
	require.Len(t, inner, 1)
	assert.Equal(t, "inv-7", inner[0].ContextMap()["invoice_id"])

	access := logs.FilterMessage("http request").All()
	require.Len(t, access, 1)
	assert.Equal(t, "inv-7", access[0].ContextMap()["invoice_id"])
	assert.EqualValues(t, http.StatusOK, access[0].ContextMap()["status"])
}
