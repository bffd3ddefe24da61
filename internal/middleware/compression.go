package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: 6,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"text/css",
			"application/javascript",
			"application/xml",
			"text/xml",
		},
	}
}

// CompressionMiddleware provides gzip compression for HTTP responses
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	cm := &CompressionMiddleware{
		config: config,
		stats:  NewCompressionStats(),
	}
	cm.pool = sync.Pool{
		New: func() interface{} {
			gz, _ := gzip.NewWriterLevel(io.Discard, config.CompressionLevel)
			return gz
		},
	}
	return cm
}

// Handler returns a Gin middleware that gzips eligible responses. Small
// responses are buffered and sent uncompressed since the gzip framing would
// outweigh the savings.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		gzw := &gzipResponseWriter{
			ResponseWriter: c.Writer,
			middleware:     cm,
		}
		c.Writer = gzw

		c.Next()

		gzw.finish()
	}
}

// shouldCompress checks if the content type should be compressed
func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// getGzipWriter gets a gzip writer from the pool
func (cm *CompressionMiddleware) getGzipWriter(w io.Writer) *gzip.Writer {
	gz := cm.pool.Get().(*gzip.Writer)
	gz.Reset(w)
	return gz
}

// returnGzipWriter returns a gzip writer to the pool
func (cm *CompressionMiddleware) returnGzipWriter(gz *gzip.Writer) {
	cm.pool.Put(gz)
}

// gzipResponseWriter buffers the response body and decides at the end of the
// request whether compression is worth applying.
type gzipResponseWriter struct {
	gin.ResponseWriter
	middleware *CompressionMiddleware
	buf        []byte
}

func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	gzw.buf = append(gzw.buf, data...)
	return len(data), nil
}

func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	gzw.buf = append(gzw.buf, s...)
	return len(s), nil
}

func (gzw *gzipResponseWriter) finish() {
	cm := gzw.middleware
	originalSize := int64(len(gzw.buf))

	compress := len(gzw.buf) >= cm.config.MinSize &&
		cm.shouldCompress(gzw.Header().Get("Content-Type"))

	if !compress {
		cm.stats.RecordRequest(originalSize, originalSize, false)
		if len(gzw.buf) > 0 {
			_, _ = gzw.ResponseWriter.Write(gzw.buf)
		}
		return
	}

	gzw.Header().Set("Content-Encoding", "gzip")
	gzw.Header().Set("Vary", "Accept-Encoding")
	gzw.Header().Del("Content-Length")

	counter := &countingWriter{w: gzw.ResponseWriter}
	gz := cm.getGzipWriter(counter)
	_, _ = gz.Write(gzw.buf)
	_ = gz.Close()
	cm.returnGzipWriter(gz)

	cm.stats.RecordRequest(originalSize, counter.n, true)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += originalSize

	if compressed {
		cs.CompressedRequests++
		cs.CompressedBytes += compressedSize
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	compressionRatio := float64(0)
	if cs.TotalBytes > 0 {
		compressionRatio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"compressed_bytes":    cs.CompressedBytes,
		"compression_ratio":   compressionRatio,
		"compression_savings": 1.0 - compressionRatio,
	}
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	stats := cm.stats.GetStats()
	stats["min_size_bytes"] = cm.config.MinSize
	return stats
}
