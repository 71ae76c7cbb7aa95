package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

// HooksRecorder captures aggregate writes in tests.
type HooksRecorder struct {
	mu     sync.Mutex
	Writes []WriteEvent
}

type WriteEvent struct {
	Op       string
	Outcome  string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveWrite(op string, err error, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Writes = append(h.Writes, WriteEvent{Op: op, Outcome: aggregates.WriteOutcome(err), Duration: dur})
}

// Count returns how many writes ended with code; "" counts commits.
func (h *HooksRecorder) Count(code apperr.Code) int {
	want := string(code)
	if code == "" {
		want = aggregates.WriteOutcome(nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, w := range h.Writes {
		if w.Outcome == want {
			n++
		}
	}
	return n
}
