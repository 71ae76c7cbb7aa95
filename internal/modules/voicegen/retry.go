package voicegen

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// CallMeta summarizes the collaborator calls behind one operation.
type CallMeta struct {
	Calls     int           `json:"calls"`
	Attempts  int           `json:"attempts"`
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	Duration  time.Duration `json:"duration"`
}

func (m *CallMeta) add(o CallMeta) {
	m.Calls += o.Calls
	m.Attempts += o.Attempts
	m.TokensIn += o.TokensIn
	m.TokensOut += o.TokensOut
}

// retryCall runs fn under the configured retry policy. Only errors coded
// retryable are retried; everything else returns after the first attempt.
func retryCall[T any](ctx context.Context, cfg RetryConfig, log *logger.Logger, hooks Hooks, op string, fn func(context.Context) (T, error)) (T, int, error) {
	// failsafe runs attempts and listeners on the calling goroutine
	attempts := 0
	var lastErr error

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	builder := retrypolicy.NewBuilder[T]().
		HandleIf(func(_ T, err error) bool {
			return err != nil && apperr.IsRetryable(err)
		}).
		WithMaxAttempts(maxAttempts).
		ReturnLastFailure().
		OnRetry(func(failsafe.ExecutionEvent[T]) {
			hooks.IncRetry(op)
			if log != nil {
				log.Warn("retrying collaborator call", "op", op, "attempt", attempts, "error", lastErr)
			}
		})
	if cfg.BaseDelay > 0 {
		maxDelay := cfg.MaxDelay
		if maxDelay <= cfg.BaseDelay {
			maxDelay = cfg.BaseDelay * 2
		}
		builder = builder.WithBackoff(cfg.BaseDelay, maxDelay)
		if cfg.Jitter > 0 && cfg.Jitter < cfg.BaseDelay {
			builder = builder.WithJitter(cfg.Jitter)
		}
	}

	out, err := failsafe.With[T](builder.Build()).WithContext(ctx).Get(func() (T, error) {
		attempts++
		v, err := fn(ctx)
		lastErr = err
		return v, err
	})
	return out, attempts, err
}
