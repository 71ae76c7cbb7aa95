package aggregates

import (
	"time"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/observability"
)

// Hooks sees one call per aggregate transaction. err is the mapped error and
// nil when the transaction committed.
type Hooks interface {
	ObserveWrite(op string, err error, dur time.Duration)
}

// HooksFunc adapts a function to Hooks.
type HooksFunc func(op string, err error, dur time.Duration)

func (f HooksFunc) ObserveWrite(op string, err error, dur time.Duration) { f(op, err, dur) }

type noopHooks struct{}

func (noopHooks) ObserveWrite(string, error, time.Duration) {}

// NewObservabilityHooks records aggregate writes on the prometheus registry.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return HooksFunc(func(op string, err error, dur time.Duration) {
		metrics.ObserveAggregateOperation(op, WriteOutcome(err), dur)
		switch apperr.CodeOf(err) {
		case apperr.CodeConflict:
			metrics.IncAggregateConflict(op)
		case apperr.CodeRetryable:
			metrics.IncAggregateRetry(op)
		}
	})
}

// WriteOutcome is the metric label for a write result: "committed" or the
// error code.
func WriteOutcome(err error) string {
	if err == nil {
		return "committed"
	}
	if code := apperr.CodeOf(err); code != "" {
		return string(code)
	}
	return string(apperr.CodeInternal)
}
