package exchange

import "time"

const (
	failureThreshold = 3
	defaultCooldown  = 10 * time.Minute
)

// breaker tracks consecutive live-fetch failures. After failureThreshold
// failures it opens for a cooldown window; while open, no live call is
// attempted. The first failure after the window re-opens it immediately.
type breaker struct {
	failures  int
	openUntil time.Time
	cooldown  time.Duration
}

func (b *breaker) allow(now time.Time) bool {
	return b.openUntil.IsZero() || !now.Before(b.openUntil)
}

func (b *breaker) success() {
	b.failures = 0
	b.openUntil = time.Time{}
}

func (b *breaker) failure(now time.Time) {
	b.failures++
	if b.failures >= failureThreshold || !b.openUntil.IsZero() {
		b.openUntil = now.Add(b.cooldown)
	}
}
