package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDispatcher_PerUserOrder(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64][]string{}
	d := NewDispatcher(func(_ context.Context, ev Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen[ev.UserID] = append(seen[ev.UserID], ev.Text)
		mu.Unlock()
	}, nil)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		for _, uid := range []int64{1, 2, 3} {
			d.Dispatch(ctx, Event{Kind: EventText, UserID: uid, Text: string(rune('a' + i))})
		}
	}
	d.Close()

	for _, uid := range []int64{1, 2, 3} {
		require.Len(t, seen[uid], 20)
		for i, txt := range seen[uid] {
			assert.Equal(t, string(rune('a'+i)), txt, "user %d event %d", uid, i)
		}
	}
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_OneGoroutinePerUser(t *testing.T) {
	var active, peak atomic.Int32
	release := make(chan struct{})
	d := NewDispatcher(func(_ context.Context, ev Event) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
	}, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d.Dispatch(ctx, Event{Kind: EventText, UserID: 42})
	}
	assert.Equal(t, 1, d.Pending())
	for i := 0; i < 5; i++ {
		release <- struct{}{}
	}
	d.Close()
	assert.Equal(t, int32(1), peak.Load(), "events of one user must never overlap")
}

func TestDispatcher_UsersRunInParallel(t *testing.T) {
	started := make(chan int64, 2)
	release := make(chan struct{})
	d := NewDispatcher(func(_ context.Context, ev Event) {
		started <- ev.UserID
		<-release
	}, nil)

	ctx := context.Background()
	d.Dispatch(ctx, Event{Kind: EventText, UserID: 1})
	d.Dispatch(ctx, Event{Kind: EventText, UserID: 2})

	got := map[int64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case uid := <-started:
			got[uid] = true
		case <-time.After(2 * time.Second):
			t.Fatal("second user was blocked by the first")
		}
	}
	close(release)
	d.Close()
	assert.Equal(t, map[int64]bool{1: true, 2: true}, got)
}

func TestDispatcher_InterceptBypassesQueue(t *testing.T) {
	release := make(chan struct{})
	intercepted := make(chan struct{}, 1)
	d := NewDispatcher(func(_ context.Context, ev Event) {
		<-release
	}, func(_ context.Context, ev *Event) bool {
		if ev.Command == "cancel" {
			intercepted <- struct{}{}
			return true
		}
		return false
	})

	ctx := context.Background()
	d.Dispatch(ctx, Event{Kind: EventText, UserID: 9})
	d.Dispatch(ctx, Event{Kind: EventCommand, UserID: 9, Command: "cancel"})

	select {
	case <-intercepted:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel waited behind the busy mailbox")
	}
	close(release)
	d.Close()
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	var handled atomic.Int32
	d := NewDispatcher(func(_ context.Context, ev Event) {
		if ev.Text == "boom" {
			panic("boom")
		}
		handled.Add(1)
	}, nil)

	ctx := context.Background()
	d.Dispatch(ctx, Event{Kind: EventText, UserID: 1, Text: "boom"})
	d.Dispatch(ctx, Event{Kind: EventText, UserID: 1, Text: "ok"})
	d.Close()
	assert.Equal(t, int32(1), handled.Load())
}

func TestDispatcher_DropsAfterClose(t *testing.T) {
	var handled atomic.Int32
	d := NewDispatcher(func(context.Context, Event) { handled.Add(1) }, nil)
	d.Close()
	d.Dispatch(context.Background(), Event{Kind: EventText, UserID: 1})
	assert.Equal(t, int32(0), handled.Load())
	assert.Equal(t, 0, d.Pending())
}
