package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler runs one job type to completion.
type Handler interface {
	Type() string
	Run(jc *Context) error
}

var ErrDuplicateHandler = errors.New("job handler already registered")

// Registry maps job types to handlers. It is filled during wiring and only
// read by workers afterwards.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[string]Handler)}
}

// Register adds each handler; a blank or already-taken job type is rejected
// and the remaining handlers are still registered.
func (r *Registry) Register(handlers ...Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, h := range handlers {
		if h == nil {
			errs = append(errs, errors.New("nil job handler"))
			continue
		}
		t := strings.TrimSpace(h.Type())
		if t == "" {
			errs = append(errs, fmt.Errorf("job handler %T has no type", h))
			continue
		}
		if _, taken := r.byType[t]; taken {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateHandler, t))
			continue
		}
		r.byType[t] = h
	}
	return errors.Join(errs...)
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byType[jobType]
	return h, ok
}

// Types is the sorted claim list for workers.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
