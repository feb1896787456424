package limiter

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/0xReLogic/slowpoke/internal/logging"
)

// Limiter caps the number of requests handled at the same time.
// Requests over the cap wait for a slot instead of being rejected, up to maxWait.
type Limiter struct {
	slots    chan struct{}
	maxWait  time.Duration
	inFlight int64
}

// New creates a limiter allowing max concurrent holders. A max of zero or
// less disables limiting. A positive maxWait bounds how long Middleware
// queues a request; zero waits as long as the request context allows.
func New(max int, maxWait time.Duration) *Limiter {
	l := &Limiter{maxWait: maxWait}
	if max > 0 {
		l.slots = make(chan struct{}, max)
	}
	return l
}

// Enabled reports whether the limiter bounds concurrency.
func (l *Limiter) Enabled() bool {
	return l.slots != nil
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.slots != nil {
		select {
		case l.slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	atomic.AddInt64(&l.inFlight, 1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	atomic.AddInt64(&l.inFlight, -1)
	if l.slots != nil {
		<-l.slots
	}
}

func (l *Limiter) holders() int {
	return int(atomic.LoadInt64(&l.inFlight))
}

// Middleware wraps an http.Handler so that at most max requests run it at once.
// A request that cannot get a slot within maxWait gets 503, so the reply is
// written before the server's write deadline.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if !l.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if l.maxWait > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.maxWait)
			defer cancel()
		}

		if err := l.Acquire(ctx); err != nil {
			logger := logging.WithContext(r.Context())
			logger.Warn().Err(err).Dur("max_wait", l.maxWait).Msg("no free slot for queued request")
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		defer l.Release()

		next.ServeHTTP(w, r)
	})
}
