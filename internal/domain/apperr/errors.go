// Package apperr is the canonical error taxonomy shared by the pipeline,
// the persistence layer and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Code standardizes failure semantics across components.
type Code string

const (
	CodeValidation         Code = "validation"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodePreconditionFailed Code = "precondition_failed"
	CodeQuotaExceeded      Code = "quota_exceeded"
	CodeDependency         Code = "dependency"
	CodeRetryable          Code = "retryable"
	CodeInternal           Code = "internal"
)

var (
	ErrInsufficientData   = errors.New("insufficient voice data")
	ErrNoPillarsAvailable = errors.New("no pillars available")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrVoiceNotTrained    = errors.New("voice not trained")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrPostedImmutable    = errors.New("posted drafts cannot be deleted")
	ErrPillarInUse        = errors.New("pillar has dependent topics or drafts")
	ErrDuplicatePillar    = errors.New("pillar name already exists")
	ErrCharCountMismatch  = errors.New("character count does not match text")
	ErrStaleWrite         = errors.New("row changed concurrently")
	ErrTopicProcessed     = errors.New("raw topic already classified")
)

// Error is the canonical coded error.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with a code. Already-coded errors keep their code.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return New(code, op, err.Error(), err)
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

func CodeOf(err error) Code {
	var ae *Error
	if !errors.As(err, &ae) {
		return ""
	}
	return ae.Code
}

func Validation(op string, cause error, format string, args ...any) error {
	return New(CodeValidation, op, fmt.Sprintf(format, args...), cause)
}

func Unauthenticated(op string) error {
	return New(CodeUnauthenticated, op, "missing caller identity", nil)
}

func NotFound(op, what string) error {
	return New(CodeNotFound, op, what+" not found", nil)
}

func Conflict(op string, cause error) error {
	return New(CodeConflict, op, cause.Error(), cause)
}

func Invariant(op string, cause error, format string, args ...any) error {
	return New(CodeInvariantViolation, op, fmt.Sprintf(format, args...), cause)
}

// Dependency tags a collaborator failure, keeping the retryable bit visible
// through the code.
func Dependency(op string, retryable bool, err error) error {
	if err == nil {
		return nil
	}
	code := CodeDependency
	if retryable {
		code = CodeRetryable
	}
	return New(code, op, err.Error(), err)
}

// IsRetryable reports whether err is a transient dependency failure.
func IsRetryable(err error) bool {
	return IsCode(err, CodeRetryable)
}
