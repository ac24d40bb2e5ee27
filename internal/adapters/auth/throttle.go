package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// throttle limits sign-in attempts per email.
type throttle struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	lims  map[string]*rate.Limiter
}

func newThrottle(perMinute int) *throttle {
	return &throttle{
		every: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
		lims:  map[string]*rate.Limiter{},
	}
}

func (t *throttle) allow(key string) bool {
	t.mu.Lock()
	l, ok := t.lims[key]
	if !ok {
		l = rate.NewLimiter(t.every, t.burst)
		t.lims[key] = l
	}
	t.mu.Unlock()
	return l.Allow()
}
