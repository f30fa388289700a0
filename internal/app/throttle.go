package app

import (
	"sync"
	"time"

	"github.com/dkeye/Space/internal/domain"
)

// PositionThrottle coalesces bursts of position updates per participant:
// registry state is always recorded, fan-out is capped to one broadcast per
// interval. An interval of zero disables throttling.
type PositionThrottle struct {
	mu       sync.Mutex
	last     map[domain.UserID]time.Time
	interval time.Duration
	now      func() time.Time
}

func NewPositionThrottle(interval time.Duration) *PositionThrottle {
	return &PositionThrottle{
		last:     make(map[domain.UserID]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

func (t *PositionThrottle) Allow(uid domain.UserID) bool {
	if t.interval <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[uid]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[uid] = now
	return true
}

// Forget drops the participant's throttle state when it leaves a room.
func (t *PositionThrottle) Forget(uid domain.UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, uid)
}
