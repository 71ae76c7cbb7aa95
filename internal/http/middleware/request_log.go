package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/ctxutil"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// RequestLogger writes one line per request. Failures answered through
// response.RespondAppError are attached to c.Errors and logged with their
// apperr code; 5xx logs at error, 4xx at warn.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("service", "HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		ctx := c.Request.Context()
		if td := ctxutil.GetTraceData(ctx); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
			kv = append(kv, "user_id", rd.UserID.String())
		}
		if last := c.Errors.Last(); last != nil {
			kv = append(kv, "error", last.Err.Error())
			if code := apperr.CodeOf(last.Err); code != "" {
				kv = append(kv, "error_code", string(code))
			}
		}

		switch {
		case status >= 500:
			log.Error("Request failed", kv...)
		case status >= 400:
			log.Warn("Request rejected", kv...)
		default:
			log.Debug("Request served", kv...)
		}
	}
}
