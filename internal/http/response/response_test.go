package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/apierr"
)

func respond(err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondAppError(c, err)
	var env ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRespondAppError_StatusByCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("op", nil, "bad"), http.StatusBadRequest},
		{apperr.Unauthenticated("op"), http.StatusUnauthorized},
		{apperr.New(apperr.CodeQuotaExceeded, "op", "limit", apperr.ErrQuotaExceeded), http.StatusPaymentRequired},
		{apperr.NotFound("op", "draft"), http.StatusNotFound},
		{apperr.Conflict("op", apperr.ErrIllegalTransition), http.StatusConflict},
		{apperr.New(apperr.CodePreconditionFailed, "op", "train first", apperr.ErrVoiceNotTrained), http.StatusUnprocessableEntity},
		{apperr.Dependency("op", true, errors.New("timeout")), http.StatusServiceUnavailable},
		{apperr.Dependency("op", false, errors.New("bad key")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
		{apierr.New(http.StatusBadRequest, "invalid_id", errors.New("bad uuid")), http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec, _ := respond(tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: want=%d got=%d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestRespondAppError_InternalHidesMessage(t *testing.T) {
	_, env := respond(errors.New("pq: password authentication failed"))
	if env.Error.Message != "internal error" {
		t.Fatalf("message: want=internal error got=%q", env.Error.Message)
	}
	_, env = respond(apperr.Dependency("op", true, errors.New("timeout")))
	if !env.Error.Retryable {
		t.Fatalf("retryable flag missing")
	}
}
