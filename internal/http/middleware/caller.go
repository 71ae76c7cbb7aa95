package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/platform/ctxutil"
)

const headerUserID = "X-User-Id"

// AttachCaller reads the caller identity set by the upstream gateway. A
// missing or malformed header leaves the context anonymous; services reject
// anonymous calls themselves.
func AttachCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(headerUserID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			c.Next()
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: id})
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", id.String())
		c.Next()
	}
}
