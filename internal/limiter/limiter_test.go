package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnbounded(t *testing.T) {
	l := New(0, time.Second)
	assert.False(t, l.Enabled())

	const requests = 20
	var entered sync.WaitGroup
	entered.Add(requests)
	release := make(chan struct{})
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered.Done()
		<-release
	}))

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}()
	}

	// Every request must be inside the handler at once.
	entered.Wait()
	close(release)
	wg.Wait()
}

func TestAcquireRelease(t *testing.T) {
	l := New(2, 0)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.holders())

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(timeoutCtx), context.DeadlineExceeded)
	assert.Equal(t, 2, l.holders())

	l.Release()
	require.NoError(t, l.Acquire(ctx))
	l.Release()
	l.Release()
	assert.Equal(t, 0, l.holders())
}

func TestMiddlewareBoundsConcurrency(t *testing.T) {
	const limit = 3
	l := New(limit, 0)

	var current, peak int32
	release := make(chan struct{})
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&current, -1)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}()
	}

	require.Eventually(t, func() bool { return l.holders() == limit }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(limit))
	assert.Equal(t, 0, l.holders())
}

func TestMiddlewareAbandonedRequest(t *testing.T) {
	l := New(1, 0)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	called := false
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMiddlewareGivesUpAfterMaxWait(t *testing.T) {
	l := New(1, 30*time.Millisecond)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	called := false
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	start := time.Now()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 1, l.holders())
}

func TestMiddlewareMaxWaitDoesNotLimitHandler(t *testing.T) {
	l := New(1, 10*time.Millisecond)

	var handlerErr error
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		handlerErr = r.Context().Err()
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, handlerErr)
	assert.Equal(t, 0, l.holders())
}
