package health

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRecordSuccessAveragesLatency(t *testing.T) {
	tr := NewTracker(DefaultThresholds())
	tr.RecordSuccess("openai", 150)
	tr.RecordSuccess("openai", 250)

	s := tr.GetStats("openai")
	if s.TotalRequests != 2 || s.State != StateHealthy {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.AvgLatencyMs != 160 {
		t.Errorf("AvgLatencyMs = %v, want 160", s.AvgLatencyMs)
	}
	if s.LastErrorAt != nil {
		t.Error("LastErrorAt set without errors")
	}
}

func TestErrorStreakTransitions(t *testing.T) {
	tests := []struct {
		errors int
		want   State
	}{
		{1, StateHealthy},
		{2, StateDegraded},
		{4, StateDegraded},
		{5, StateDown},
		{9, StateDown},
	}
	for _, tt := range tests {
		tr := NewTracker(DefaultThresholds())
		for i := 0; i < tt.errors; i++ {
			tr.RecordError("gemini", "HTTP 503")
		}
		if got := tr.GetStats("gemini").State; got != tt.want {
			t.Errorf("%d errors: state = %s, want %s", tt.errors, got, tt.want)
		}
	}
}

func TestSuccessResetsStreak(t *testing.T) {
	tr := NewTracker(DefaultThresholds())
	for i := 0; i < 5; i++ {
		tr.RecordError("mistral", "eof")
	}
	tr.RecordSuccess("mistral", 90)

	s := tr.GetStats("mistral")
	if s.State != StateHealthy || s.ErrorStreak != 0 {
		t.Errorf("success should reset: %+v", s)
	}
	if s.TotalErrors != 5 || s.LastError != "eof" {
		t.Errorf("history lost: %+v", s)
	}
	if s.AvgLatencyMs != 90 {
		t.Errorf("first success latency = %v, want 90", s.AvgLatencyMs)
	}
}

func TestTimestampsUseClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(DefaultThresholds(), WithClock(func() time.Time { return at }))
	tr.RecordError("mistral", "eof")
	tr.RecordSuccess("mistral", 10)

	s := tr.GetStats("mistral")
	if s.LastErrorAt == nil || !s.LastErrorAt.Equal(at) {
		t.Errorf("LastErrorAt = %v", s.LastErrorAt)
	}
	if s.LastSuccessAt == nil || !s.LastSuccessAt.Equal(at) {
		t.Errorf("LastSuccessAt = %v", s.LastSuccessAt)
	}
}

func TestLastErrorIsClipped(t *testing.T) {
	tr := NewTracker(DefaultThresholds())
	tr.RecordError("openai", strings.Repeat("ж", 500))
	got := tr.GetStats("openai").LastError
	if n := len([]rune(got)); n != maxErrorLen+1 {
		t.Errorf("clipped to %d runes", n)
	}
}

func TestGetStatsUnknown(t *testing.T) {
	s := NewTracker(DefaultThresholds()).GetStats("nope")
	if s.ProviderID != "nope" || s.State != StateHealthy || s.TotalRequests != 0 {
		t.Errorf("unexpected stats for unknown provider: %+v", s)
	}
}

func TestOnChangeFiresOnTransitionsOnly(t *testing.T) {
	var events []string
	tr := NewTracker(DefaultThresholds(), WithOnChange(func(id string, s State) {
		events = append(events, id+"="+string(s))
	}))

	tr.Register("openai")
	tr.Register("openai")
	tr.RecordError("openai", "x")
	tr.RecordError("openai", "x")
	tr.RecordError("openai", "x")
	tr.RecordSuccess("openai", 5)
	tr.RecordSuccess("gemini", 5)

	want := "openai=healthy,openai=degraded,openai=healthy,gemini=healthy"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s, want %s", got, want)
	}
}

func TestStateLevel(t *testing.T) {
	for s, want := range map[State]float64{StateHealthy: 0, StateDegraded: 1, StateDown: 2, "": 0} {
		if got := s.Level(); got != want {
			t.Errorf("%q.Level() = %v, want %v", s, got, want)
		}
	}
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTracker(DefaultThresholds())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				tr.RecordSuccess("openai", 10)
			} else {
				tr.RecordError("openai", "err")
			}
		}(i)
	}
	wg.Wait()

	s := tr.GetStats("openai")
	if s.TotalRequests != 50 || s.TotalErrors != 25 {
		t.Errorf("expected 50 requests / 25 errors, got %d / %d", s.TotalRequests, s.TotalErrors)
	}
}
