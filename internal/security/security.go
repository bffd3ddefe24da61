package security

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxProjectNameLength int           `json:"max_project_name_length"`
	AllowedOrigins       []string      `json:"allowed_origins"`
	TrustedProxies       []string      `json:"trusted_proxies"`
	RequestTimeout       time.Duration `json:"request_timeout"`
	UploadMaxBytes       int64         `json:"upload_max_bytes"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxProjectNameLength: 100,
		AllowedOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
		TrustedProxies:       []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout:       30 * time.Second,
		UploadMaxBytes:       500 * 1024 * 1024,
	}
}

// SecurityMiddleware provides request validation middleware
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

// ValidateProjectName checks a user-supplied project name before it reaches
// the database layer
func (sm *SecurityMiddleware) ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name is required")
	}

	if len(name) > sm.config.MaxProjectNameLength {
		return fmt.Errorf("project name exceeds maximum length of %d characters", sm.config.MaxProjectNameLength)
	}

	if strings.Contains(name, "\x00") {
		return fmt.Errorf("project name contains invalid characters")
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("project name contains invalid UTF-8 encoding")
	}

	suspiciousPatterns := []string{
		`<script`, `</script>`, `javascript:`,
		`union select`, `drop table`, `alter table`,
		`--`, `/*`, `*/`,
	}

	nameLower := strings.ToLower(name)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(nameLower, pattern) {
			return fmt.Errorf("project name contains suspicious patterns")
		}
	}

	return nil
}

// SanitizeProjectName trims and collapses whitespace in a project name
func (sm *SecurityMiddleware) SanitizeProjectName(name string) string {
	name = strings.TrimSpace(name)
	return strings.Join(strings.Fields(name), " ")
}

// ValidateUploadName checks the client-supplied archive file name. Only the
// base name is kept server-side, so traversal sequences are rejected outright.
func (sm *SecurityMiddleware) ValidateUploadName(name string) error {
	if name == "" {
		return fmt.Errorf("file name is required")
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("file name must not contain path separators")
	}

	if !strings.EqualFold(path.Ext(name), ".zip") {
		return fmt.Errorf("only .zip archives are accepted")
	}

	return nil
}

// ValidateContentType validates request content type
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")

	allowedTypes := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	}

	if contentType != "" {
		found := false
		for _, allowed := range allowedTypes {
			if strings.Contains(strings.ToLower(contentType), allowed) {
				found = true
				break
			}
		}

		if !found {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "unsupported content type",
			})
			c.Abort()
			return
		}
	}

	c.Next()
}

// UploadSizeLimit caps request bodies on upload endpoints. The Content-Length
// check rejects oversized uploads early; MaxBytesReader guards chunked bodies.
func (sm *SecurityMiddleware) UploadSizeLimit(c *gin.Context) {
	if c.Request.ContentLength > sm.config.UploadMaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "upload too large",
			"max_bytes": sm.config.UploadMaxBytes,
		})
		c.Abort()
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.UploadMaxBytes)
	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}
