// Package delay picks the simulated latency applied to each request.
package delay

import (
	"fmt"
	"math/rand"
	"time"
)

// Source yields the delay for one request. Implementations must be safe for
// concurrent use.
type Source interface {
	Next() time.Duration
}

// Uniform picks a whole number of seconds uniformly from [Min, Max].
type Uniform struct {
	Min int
	Max int
}

// NewUniform creates a uniform source bounded by min and max seconds, inclusive.
func NewUniform(min, max int) (*Uniform, error) {
	if min < 0 || max < 0 {
		return nil, fmt.Errorf("delay bounds must not be negative (min=%d, max=%d)", min, max)
	}
	if min > max {
		return nil, fmt.Errorf("delay min %d exceeds max %d", min, max)
	}
	return &Uniform{Min: min, Max: max}, nil
}

// Next uses the package level math/rand functions, which are safe for
// concurrent use and seeded randomly since Go 1.20.
func (u *Uniform) Next() time.Duration {
	seconds := u.Min + rand.Intn(u.Max-u.Min+1)
	return time.Duration(seconds) * time.Second
}

// Fixed always yields the same delay.
type Fixed time.Duration

// Next returns the fixed delay.
func (f Fixed) Next() time.Duration {
	return time.Duration(f)
}
