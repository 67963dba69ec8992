package ingest

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrUpstreamSuspended is returned when fetching is paused because the
// upstream host failed too many times in a row.
var ErrUpstreamSuspended = eris.New("ingest: upstream suspended after repeated failures")

// breaker pauses fetching against the single upstream host after a run of
// consecutive failures, instead of hammering a site that is down or
// rate-limiting us. After the cooldown one probe request is let through;
// its outcome decides whether fetching resumes.
type breaker struct {
	threshold int
	cooldown  time.Duration

	mu          sync.Mutex
	failures    int
	suspendedAt time.Time
	probing     bool

	now func() time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// allow reports whether a fetch may proceed. While suspended it fails fast
// with ErrUpstreamSuspended until the cooldown elapses, then admits a single
// probe request.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if b.now().Sub(b.suspendedAt) < b.cooldown {
		return ErrUpstreamSuspended
	}
	if b.probing {
		return ErrUpstreamSuspended
	}
	b.probing = true
	return nil
}

// record feeds a fetch outcome back. Success clears the failure run; a
// failure during the probe window re-suspends for another cooldown.
func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.probing = false
		return
	}

	b.failures++
	b.probing = false
	if b.failures >= b.threshold {
		b.suspendedAt = b.now()
	}
}

// suspended reports whether the breaker currently rejects fetches.
func (b *breaker) suspended() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && b.now().Sub(b.suspendedAt) < b.cooldown
}
