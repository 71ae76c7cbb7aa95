package voicegen

import "time"

// Hooks receives pipeline telemetry. Implementations must be safe for
// concurrent use.
type Hooks interface {
	ObserveCall(op, status string, dur time.Duration, tokensIn, tokensOut int)
	IncRetry(op string)
	IncClassification(status string)
	IncTier(tier string)
}

type NoopHooks struct{}

func (NoopHooks) ObserveCall(string, string, time.Duration, int, int) {}
func (NoopHooks) IncRetry(string)                                     {}
func (NoopHooks) IncClassification(string)                            {}
func (NoopHooks) IncTier(string)                                      {}

func hooksOrNoop(h Hooks) Hooks {
	if h == nil {
		return NoopHooks{}
	}
	return h
}
