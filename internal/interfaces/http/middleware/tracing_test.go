package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.FailNow(t, "span not found", name)
	return nil
}

func spanAttribute(span sdktrace.ReadOnlySpan, key attribute.Key) (string, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "test-service"}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingWithConfig_Enabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test-service"}))
	router.GET("/products/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/42", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	findSpan(t, sr, "GET /products/:id")
}

func TestTracingAttributeInjector(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(RequestID(), Operator(), Tracing(), TracingAttributeInjector())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "test-request-id-123")
	req.Header.Set(OperatorHeader, "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	span := findSpan(t, sr, "GET /test")
	requestID, ok := spanAttribute(span, "request_id")
	require.True(t, ok, "request_id attribute not found in span")
	assert.Equal(t, "test-request-id-123", requestID)

	operator, ok := spanAttribute(span, "operator")
	require.True(t, ok, "operator attribute not found in span")
	assert.Equal(t, "alice", operator)
}

func TestTracingAttributeInjector_WithNoSpan(t *testing.T) {
	router := gin.New()
	router.Use(TracingAttributeInjector())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		code        codes.Code
		description string
	}{
		{"not found", http.StatusNotFound, codes.Error, "Not Found"},
		{"conflict", http.StatusConflict, codes.Error, "Conflict"},
		{"bad request", http.StatusBadRequest, codes.Error, "Client Error"},
		{"success", http.StatusOK, codes.Unset, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			router := gin.New()
			router.Use(Tracing(), SpanErrorMarker())
			router.GET("/test", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{})
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			span := findSpan(t, sr, "GET /test")
			assert.Equal(t, tt.code, span.Status().Code)
			assert.Equal(t, tt.description, span.Status().Description)
		})
	}
}

func TestSpanErrorMarker_5xx(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(), SpanErrorMarker())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	span := findSpan(t, sr, "GET /test")
	assert.Equal(t, codes.Error, span.Status().Code)
}

func TestSpanErrorMarker_WithNoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanErrorMarker())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
