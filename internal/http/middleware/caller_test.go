package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/platform/ctxutil"
)

func TestAttachCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()

	cases := map[string]uuid.UUID{
		id.String():  id,
		"":           uuid.Nil,
		"not-a-uuid": uuid.Nil,
	}
	for header, want := range cases {
		var got uuid.UUID
		r := gin.New()
		r.Use(AttachCaller())
		r.GET("/x", func(c *gin.Context) {
			if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
				got = rd.UserID
			}
			c.Status(http.StatusNoContent)
		})
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set(headerUserID, header)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
		if got != want {
			t.Fatalf("header %q: want=%s got=%s", header, want, got)
		}
	}
}
