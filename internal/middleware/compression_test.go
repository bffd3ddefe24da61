package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompressionRouter(cfg CompressionConfig, payload string) (*gin.Engine, *CompressionMiddleware) {
	gin.SetMode(gin.TestMode)
	cm := NewCompressionMiddleware(cfg)

	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/data", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(payload))
	})

	return r, cm
}

func TestCompressionLargeJSONResponse(t *testing.T) {
	payload := `{"items":"` + strings.Repeat("abcdef", 500) + `"}`
	r, cm := newCompressionRouter(DefaultCompressionConfig(), payload)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Less(t, w.Body.Len(), len(payload))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	decoded, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, payload, string(decoded))

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats["compressed_requests"].(int64))
}

func TestCompressionSkipsSmallResponses(t *testing.T) {
	r, cm := newCompressionRouter(DefaultCompressionConfig(), `{"ok":true}`)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, `{"ok":true}`, w.Body.String())

	stats := cm.GetStats()
	assert.Equal(t, int64(0), stats["compressed_requests"].(int64))
	assert.Equal(t, int64(1), stats["total_requests"].(int64))
}

func TestCompressionSkipsWithoutAcceptEncoding(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	r, _ := newCompressionRouter(DefaultCompressionConfig(), payload)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/data", nil)
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.String())
}

func TestCompressionSkipsUnlistedContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/blob", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/octet-stream", []byte(strings.Repeat("y", 4096)))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/blob", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, 4096, w.Body.Len())
}
