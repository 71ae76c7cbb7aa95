package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/apierr"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAppError maps a service error to its HTTP status. Internal failures
// never leak their message.
func RespondAppError(c *gin.Context, err error) {
	var httpErr *apierr.Error
	if errors.As(err, &httpErr) {
		RespondError(c, httpErr.Status, httpErr.Code, httpErr.Err)
		return
	}
	code := apperr.CodeOf(err)
	status := StatusFor(code)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: string(apperr.CodeInternal)}})
		return
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message:   err.Error(),
			Code:      string(code),
			Retryable: code == apperr.CodeRetryable,
		},
	})
}

func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeInvariantViolation, apperr.CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case apperr.CodeRetryable:
		return http.StatusServiceUnavailable
	case apperr.CodeDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
