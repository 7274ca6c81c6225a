package backoff

import "time"

const (
	// DefaultMin is used when a non positive minimum delay is given
	DefaultMin = 200 * time.Millisecond
	// DefaultMax caps the delay when no maximum is configured
	DefaultMax = 32 * time.Second
)

//Backoff keeps a single delay that grows on failures and shrinks on successes,
//always inside [min, max]. It is not safe for concurrent use, every client
//owns its own instance.
type Backoff struct {
	min, max time.Duration
	cur      time.Duration
}

//New returns a Backoff starting at min
func New(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = DefaultMin
	}
	if max < min {
		max = min
	}
	return &Backoff{min: min, max: max, cur: min}
}

// Double multiplies the current delay by 2, clamped to max
func (b *Backoff) Double() {
	b.cur *= 2
	if b.cur > b.max || b.cur <= 0 {
		b.cur = b.max
	}
}

// Halve multiplies the current delay by 0.5, clamped to min
func (b *Backoff) Halve() {
	b.cur /= 2
	if b.cur < b.min {
		b.cur = b.min
	}
}

// Value is the delay to wait before the next attempt
func (b *Backoff) Value() time.Duration {
	return b.cur
}

func (b *Backoff) Min() time.Duration {
	return b.min
}

func (b *Backoff) Max() time.Duration {
	return b.max
}
