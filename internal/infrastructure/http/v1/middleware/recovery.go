// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"weighbridge/internal/core/apperror"
	"weighbridge/pkg/logger"
)

// Recovery middleware recovers from panics and returns 500 error.
// Mounted after Logger, its log line carries the entry or invoice id of the
// route along with the route itself; the client only sees the request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				kv := []any{
					"error", err,
					"route", routeOf(c),
					"method", c.Request.Method,
					"stack", string(debug.Stack()),
				}
				logger.Error(c.Request.Context(), "panic recovered", kv...)

				_ = c.Error(
					apperror.NewInternal(fmt.Errorf("panic in %s %s: %v", c.Request.Method, routeOf(c), err)).
						WithDetail("request_id", c.GetString("request_id")),
				)
				c.Abort()
			}
		}()
		c.Next()
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// documentFields names the entry or invoice addressed by the route's :id.
func documentFields(c *gin.Context) []any {
	docID := c.Param("id")
	if docID == "" {
		return nil
	}
	route := c.FullPath()
	switch {
	case strings.Contains(route, "/entries/"):
		return []any{"entry_id", docID}
	case strings.Contains(route, "/invoices/"):
		return []any{"invoice_id", docID}
	default:
		return []any{"document_id", docID}
	}
}
