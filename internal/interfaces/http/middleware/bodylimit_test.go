package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imageUploadRouter accepts a product payload and reports how much of it was read
func imageUploadRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/products", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "truncated")
			return
		}
		c.String(http.StatusCreated, "%d", len(data))
	})
	router.GET("/products", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func productPayload(imageBytes int) string {
	return `{"name":"Stapler","sku":"ST-1","image":"data:image/png;base64,` + strings.Repeat("A", imageBytes) + `"}`
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("small product passes", func(t *testing.T) {
		body := productPayload(16)
		w := httptest.NewRecorder()
		imageUploadRouter(1024).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "80", w.Body.String())
		assert.Len(t, body, 80)
	})

	t.Run("declared oversized image is refused up front", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(productPayload(4096)))
		req.Header.Set(RequestIDHeader, "req-upload")
		w := httptest.NewRecorder()
		imageUploadRouter(1024).ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
		assert.Equal(t, "req-upload", resp.Error.RequestID)
	})

	t.Run("reads without a body are unaffected", func(t *testing.T) {
		w := httptest.NewRecorder()
		imageUploadRouter(8).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("chunked upload is cut at the limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(productPayload(4096)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		imageUploadRouter(1024).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "truncated", w.Body.String())
	})
}
