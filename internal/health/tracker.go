// Package health summarizes recent provider behaviour for operators.
// It is observational only: the router keeps its fixed provider order
// whatever state a provider is in.
package health

import (
	"sync"
	"time"
	"unicode/utf8"
)

// State is a provider's health as shown on the admin API.
type State string

const (
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
	StateDown     State = "down"
)

// Level maps the state onto the astrohub_provider_health_state gauge.
func (s State) Level() float64 {
	switch s {
	case StateDegraded:
		return 1
	case StateDown:
		return 2
	default:
		return 0
	}
}

// Stats is a point-in-time copy of one provider's record.
type Stats struct {
	ProviderID    string     `json:"provider_id"`
	State         State      `json:"state"`
	TotalRequests int64      `json:"total_requests"`
	TotalErrors   int64      `json:"total_errors"`
	ErrorStreak   int        `json:"error_streak"`
	AvgLatencyMs  float64    `json:"avg_latency_ms"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
}

// Thresholds decide when an error streak degrades a provider.
type Thresholds struct {
	DegradedAfter int
	DownAfter     int
	// LatencyWeight is the share of a new sample in the moving average.
	LatencyWeight float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{DegradedAfter: 2, DownAfter: 5, LatencyWeight: 0.1}
}

// maxErrorLen caps the stored error text; provider errors may carry bodies.
const maxErrorLen = 200

// Tracker implements router.HealthChecker.
type Tracker struct {
	th       Thresholds
	now      func() time.Time
	onChange func(providerID string, s State)

	mu    sync.Mutex
	stats map[string]*Stats
}

type Option func(*Tracker)

// WithOnChange registers fn to be called, outside the lock, whenever a
// provider is registered or moves to a different state.
func WithOnChange(fn func(providerID string, s State)) Option {
	return func(t *Tracker) { t.onChange = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(th Thresholds, opts ...Option) *Tracker {
	t := &Tracker{th: th, now: time.Now, stats: map[string]*Stats{}}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Register makes a provider visible as healthy before its first request.
func (t *Tracker) Register(providerID string) {
	t.mu.Lock()
	_, known := t.stats[providerID]
	if !known {
		t.stats[providerID] = &Stats{ProviderID: providerID, State: StateHealthy}
	}
	t.mu.Unlock()
	if !known {
		t.notify(providerID, StateHealthy)
	}
}

func (t *Tracker) RecordSuccess(providerID string, latencyMs float64) {
	t.update(providerID, func(s *Stats) {
		at := t.now()
		s.TotalRequests++
		s.ErrorStreak = 0
		s.LastSuccessAt = &at
		s.State = StateHealthy
		if s.TotalRequests-s.TotalErrors == 1 {
			s.AvgLatencyMs = latencyMs
		} else {
			w := t.th.LatencyWeight
			s.AvgLatencyMs = s.AvgLatencyMs*(1-w) + latencyMs*w
		}
	})
}

func (t *Tracker) RecordError(providerID string, errMsg string) {
	t.update(providerID, func(s *Stats) {
		at := t.now()
		s.TotalRequests++
		s.TotalErrors++
		s.ErrorStreak++
		s.LastError = clip(errMsg, maxErrorLen)
		s.LastErrorAt = &at
		if s.ErrorStreak >= t.th.DownAfter {
			s.State = StateDown
		} else if s.ErrorStreak >= t.th.DegradedAfter {
			s.State = StateDegraded
		}
	})
}

// GetStats returns a copy of a provider's record; unknown providers read
// as healthy with no traffic.
func (t *Tracker) GetStats(providerID string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.stats[providerID]; ok {
		return *s
	}
	return Stats{ProviderID: providerID, State: StateHealthy}
}

func (t *Tracker) update(providerID string, fn func(*Stats)) {
	t.mu.Lock()
	s, ok := t.stats[providerID]
	if !ok {
		s = &Stats{ProviderID: providerID, State: StateHealthy}
		t.stats[providerID] = s
	}
	before := s.State
	fn(s)
	after := s.State
	t.mu.Unlock()

	if !ok || before != after {
		t.notify(providerID, after)
	}
}

func (t *Tracker) notify(providerID string, s State) {
	if t.onChange != nil {
		t.onChange(providerID, s)
	}
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
