package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the trace identifier between services.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key holding the trace identifier.
	TraceIDKey = "trace_id"
	// UserIDKey is the gin context key holding the authenticated account id.
	UserIDKey = "user_id"

	requestMetaKey = "phonecare_request_meta"
)

// RequestMeta is the correlation data the access log and the auth middleware
// share for a single request. AccountID stays empty until RequireAuth
// validates a token.
type RequestMeta struct {
	TraceID   string
	AccountID string
	ClientIP  string
}

// EnrichContext seeds every request with a trace id (inbound header or fresh
// uuid) and the shared RequestMeta.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestMetaKey, &RequestMeta{
			TraceID:  traceID,
			ClientIP: c.ClientIP(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace id for the current request, or "" before
// EnrichContext has run.
func GetTraceID(c *gin.Context) string {
	if value, ok := c.Get(TraceIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

// RequestMetaFrom returns the shared per-request metadata. The zero value is
// returned when EnrichContext is not installed, so callers never nil-check.
func RequestMetaFrom(c *gin.Context) *RequestMeta {
	if value, ok := c.Get(requestMetaKey); ok {
		if meta, ok := value.(*RequestMeta); ok {
			return meta
		}
	}
	return &RequestMeta{}
}
