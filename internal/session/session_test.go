package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/astrohub/internal/report"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Session
		ok   bool
	}{
		{"idle", Session{}, true},
		{"idle with order", Session{OrderID: 3}, true},
		{"numerology", Session{Flow: report.Numerology, State: StateNumInput, OrderID: 1}, true},
		{"palm context", Session{Flow: report.Palmistry, State: StatePalmContext, OrderID: 1}, true},
		{"natal stepwise", Session{Flow: report.Natal, State: StateNatalCity, OrderID: 1}, true},
		{"state without flow", Session{State: StateNumInput, OrderID: 1}, false},
		{"state of another flow", Session{Flow: report.Natal, State: StatePalmPhoto, OrderID: 1}, false},
		{"state without order", Session{Flow: report.Numerology, State: StateNumInput}, false},
		{"unknown state", Session{Flow: report.Numerology, State: "bogus", OrderID: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInconsistent), "err = %v", err)
			}
		})
	}
}

func TestWithDoesNotAlias(t *testing.T) {
	a := Session{Flow: report.Natal, State: StateNatalDate, OrderID: 1}.With(FieldFullName, "Иван")
	b := a.With(FieldDate, "01.01.1990")
	assert.Empty(t, a.Field(FieldDate))
	assert.Equal(t, "01.01.1990", b.Field(FieldDate))
	assert.Empty(t, b.Without(FieldDate).Field(FieldDate))
	assert.Equal(t, "01.01.1990", b.Field(FieldDate))
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	assert.False(t, m.Get(1).Active())

	s := Session{Flow: report.Palmistry, State: StatePalmPhoto, OrderID: 9}
	require.NoError(t, m.Put(1, s))
	assert.Equal(t, s, m.Get(1))

	err := m.Put(1, Session{State: StatePalmPhoto})
	assert.Error(t, err)
	assert.Equal(t, s, m.Get(1), "rejected put must not change the stored session")

	// Completion keeps the order id so late results can be matched.
	require.NoError(t, m.Put(1, Session{OrderID: 9}))
	assert.Equal(t, int64(9), m.Get(1).OrderID)
	assert.False(t, m.Get(1).Active())

	m.Clear(1)
	assert.Equal(t, Session{Gen: 1}, m.Get(1))
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Put(2, Session{}))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryStore_getReturnsCopy(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Put(1, Session{Flow: report.Natal, State: StateNatalTime, OrderID: 1}.With(FieldDate, "x")))
	got := m.Get(1)
	got.Fields[FieldDate] = "mutated"
	assert.Equal(t, "x", m.Get(1).Field(FieldDate))
}

func TestMemoryStore_concurrent(t *testing.T) {
	m := NewMemoryStore()
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = m.Put(id, Session{Flow: report.Numerology, State: StateNumInput, OrderID: id})
			_ = m.Get(id)
			if id%2 == 0 {
				m.Clear(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, m.Len())
}

func TestMemoryStore_writeAfterClearIsStale(t *testing.T) {
	m := NewMemoryStore()
	read := m.Get(1)
	assert.Equal(t, uint64(0), read.Gen)

	m.Clear(1)
	assert.Equal(t, uint64(1), m.Generation(1))

	late := read
	late.Flow, late.State, late.OrderID = report.Natal, StateNatalAll, 4
	err := m.Put(1, late)
	require.ErrorIs(t, err, ErrStale)
	assert.False(t, m.Get(1).Active(), "a stale write must not revive the flow")

	fresh := m.Get(1)
	fresh.Flow, fresh.State, fresh.OrderID = report.Natal, StateNatalAll, 5
	require.NoError(t, m.Put(1, fresh))
	assert.Equal(t, int64(5), m.Get(1).OrderID)
	assert.Equal(t, uint64(0), m.Generation(2), "generations are per user")
}
