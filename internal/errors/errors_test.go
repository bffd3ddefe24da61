package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("project name is required", "project")

	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "[VALIDATION_ERROR] project name is required", err.Error())
}

func TestNewInvalidArchiveError(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := NewInvalidArchiveError("uploaded file is not a readable zip archive", cause)

	assert.Equal(t, CategoryArchive, err.Category)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.ErrorIs(t, err, cause)
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("build", "abc-123")

	assert.Equal(t, CategoryNotFound, err.Category)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
	assert.Contains(t, err.Error(), "build not found")
}

func TestNewQuotaExceededError(t *testing.T) {
	err := NewQuotaExceededError("free fix pack limit reached", 3, 3)

	assert.Equal(t, CategoryQuota, err.Category)
	assert.Equal(t, http.StatusPaymentRequired, err.HTTPStatus)
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError("30s")

	assert.Equal(t, CategoryRateLimit, err.Category)
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus)
}

func TestToAppErrorPassthrough(t *testing.T) {
	original := NewNotFoundError("host", "vercel")
	converted := ToAppError(original)

	assert.Same(t, original, converted)
}

func TestToAppErrorNil(t *testing.T) {
	assert.Nil(t, ToAppError(nil))
}

func TestToAppErrorClassifiesTimeouts(t *testing.T) {
	err := ToAppError(context.DeadlineExceeded)
	assert.Equal(t, CategoryTimeout, err.Category)
	assert.Equal(t, http.StatusGatewayTimeout, err.HTTPStatus)

	err = ToAppError(fmt.Errorf("dial tcp: i/o timeout"))
	assert.Equal(t, CategoryTimeout, err.Category)
}

func TestToAppErrorClassifiesNetworkFailures(t *testing.T) {
	err := ToAppError(errors.New("dial tcp 127.0.0.1:6379: connection refused"))

	assert.Equal(t, CategoryNetwork, err.Category)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
}

func TestToAppErrorDefaultsToInternal(t *testing.T) {
	err := ToAppError(errors.New("something broke"))

	assert.Equal(t, CategoryInternal, err.Category)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(NewNotFoundError("build", "missing"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/boom", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestRecoveryHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RecoveryHandler())
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWrapError(t *testing.T) {
	base := errors.New("disk full")
	wrapped := WrapError(base, "saving build %s", "abc")

	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "saving build abc")

	assert.NoError(t, WrapError(nil, "ignored"))
}
