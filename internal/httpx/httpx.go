// Package httpx holds the gin helpers shared by every handler.
package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/apperr"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorBody struct {
	Operation string `json:"operation"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInsufficientStock, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func Body(op string, err error) ErrorBody {
	return ErrorBody{
		Operation: apperr.OpOf(err, op),
		Code:      apperr.KindOf(err).String(),
		Message:   apperr.MessageOf(err),
	}
}

// Error renders err and logs internal failures.
func Error(c *gin.Context, log logger.ZapLogger, op string, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("operation", op), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": Body(op, err)})
}

// BadRequest renders a binding failure as a validation error.
func BadRequest(c *gin.Context, op string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ErrorBody{
		Operation: op,
		Code:      apperr.KindValidation.String(),
		Message:   err.Error(),
	}})
}

// IntQuery parses an integer query parameter, returning fallback when absent or invalid.
func IntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// TimeQuery parses an RFC 3339 timestamp or a YYYY-MM-DD date.
func TimeQuery(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, apperr.Validation("parseQuery", "%s must be RFC 3339 or YYYY-MM-DD", key)
	}
	return &t, nil
}
