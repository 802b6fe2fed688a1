package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *clock { return &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)} }

func TestAllowBurstThenRefill(t *testing.T) {
	c := newClock()
	l := New(2, 5, WithClock(c.now))

	for i := range 5 {
		if !l.Allow("ip") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("ip") {
		t.Fatal("request 6 should be denied")
	}

	c.advance(500 * time.Millisecond)
	if !l.Allow("ip") {
		t.Fatal("one token should have refilled after 500ms at 2 rps")
	}
	if l.Allow("ip") {
		t.Fatal("only one token should have refilled")
	}

	c.advance(time.Hour)
	for i := range 5 {
		if !l.Allow("ip") {
			t.Fatalf("refill must cap at burst; request %d denied", i+1)
		}
	}
	if l.Allow("ip") {
		t.Fatal("bucket should not exceed burst")
	}
}

func TestSeparateClients(t *testing.T) {
	l := New(1, 1, WithClock(newClock().now))
	if !l.Allow("ip1") || l.Allow("ip1") {
		t.Fatal("ip1 should get exactly one request")
	}
	if !l.Allow("ip2") {
		t.Fatal("ip2 has its own bucket")
	}
}

func TestMiddleware(t *testing.T) {
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "rejected_total", Help: "x"})
	l := New(1, 2, WithClock(newClock().now), WithCounter(rejected))
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest("GET", "/admin/v1/orders", nil)
		req.RemoteAddr = "10.0.0.1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "1" {
			t.Error("expected Retry-After header")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
	if got := testutil.ToFloat64(rejected); got != 1 {
		t.Errorf("rejected counter = %v, want 1", got)
	}
}

func TestEvictsLeastRecentlySeen(t *testing.T) {
	c := newClock()
	l := New(1, 1, WithClock(c.now), WithMaxKeys(2))

	l.Allow("a")
	c.advance(time.Second)
	l.Allow("b")
	c.advance(time.Second)
	l.Allow("a")
	c.advance(time.Second)
	l.Allow("c")

	if l.Len() != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", l.Len())
	}
	l.mu.Lock()
	_, hasB := l.buckets["b"]
	_, hasA := l.buckets["a"]
	l.mu.Unlock()
	if hasB || !hasA {
		t.Error("b was least recently seen and should be evicted")
	}
}

func TestPrune(t *testing.T) {
	c := newClock()
	l := New(1, 1, WithClock(c.now))
	l.Allow("old")
	c.advance(11 * time.Minute)
	l.Allow("new")

	l.Prune()
	if l.Len() != 1 {
		t.Errorf("expected only the recent client to survive, got %d", l.Len())
	}
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := New(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	<-done
}
