package task

import (
	"sync"

	"golang.org/x/time/rate"
)

// ActionLimiter throttles how often a single task may fire its actions,
// keyed by task name, so a flapping task cannot flood a notifier.
// Grounded on itskum47-FluxForge/control_plane/scheduler's
// TokenBucketLimiter, generalised to key on task name.
type ActionLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

// NewActionLimiter builds a limiter allowing r action dispatches per
// second (with burst b) per task. A nil *ActionLimiter allows every
// call, so callers that don't need limiting can leave it unset.
func NewActionLimiter(r float64, b int) *ActionLimiter {
	return &ActionLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(r),
		b:        b,
	}
}

// Allow reports whether taskName may dispatch an action right now.
func (l *ActionLimiter) Allow(taskName string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[taskName]
	if !ok {
		limiter = rate.NewLimiter(l.r, l.b)
		l.limiters[taskName] = limiter
	}
	return limiter.Allow()
}
