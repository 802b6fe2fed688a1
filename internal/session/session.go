// Package session holds the per-user conversation state in process memory.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jordanhubbard/astrohub/internal/report"
)

// State is the input a flow is waiting for.
type State string

const (
	StateNone State = ""

	StateNumInput State = "num_input"

	StatePalmPhoto   State = "palm_photo"
	StatePalmContext State = "palm_ctx"

	StateNatalAll  State = "natal_all"
	StateNatalDate State = "natal_date"
	StateNatalTime State = "natal_time"
	StateNatalCity State = "natal_city"
)

var flowStates = map[State]report.Kind{
	StateNumInput:    report.Numerology,
	StatePalmPhoto:   report.Palmistry,
	StatePalmContext: report.Palmistry,
	StateNatalAll:    report.Natal,
	StateNatalDate:   report.Natal,
	StateNatalTime:   report.Natal,
	StateNatalCity:   report.Natal,
}

// Field keys collected across several messages.
const (
	FieldFullName = "full_name"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldCity     = "city"
	FieldPhotoID  = "photo_id"
)

// Session is one user's conversation. The zero value is an idle session.
type Session struct {
	Flow    report.Kind
	State   State
	OrderID int64
	Fields  map[string]string
	// Gen is the user's store generation when the session was read. Put
	// refuses it once Clear has run since.
	Gen uint64
}

var (
	ErrInconsistent = errors.New("inconsistent session")
	// ErrStale means the session was cleared after it was read.
	ErrStale = errors.New("session cleared concurrently")
)

// Active reports whether a flow is waiting for input.
func (s Session) Active() bool { return s.State != StateNone }

// Validate checks that an active state belongs to its flow and carries an order.
func (s Session) Validate() error {
	if s.State == StateNone {
		return nil
	}
	owner, ok := flowStates[s.State]
	if !ok {
		return fmt.Errorf("%w: unknown state %q", ErrInconsistent, s.State)
	}
	if s.Flow != owner {
		return fmt.Errorf("%w: state %q outside flow %q", ErrInconsistent, s.State, s.Flow)
	}
	if s.OrderID == 0 {
		return fmt.Errorf("%w: state %q without order", ErrInconsistent, s.State)
	}
	return nil
}

// Field returns a collected field, or "" when absent.
func (s Session) Field(k string) string { return s.Fields[k] }

// With returns a copy of s with field k set.
func (s Session) With(k, v string) Session {
	c := s.clone()
	if c.Fields == nil {
		c.Fields = map[string]string{}
	}
	c.Fields[k] = v
	return c
}

// Without returns a copy of s with field k removed.
func (s Session) Without(k string) Session {
	c := s.clone()
	delete(c.Fields, k)
	return c
}

func (s Session) clone() Session {
	c := s
	if s.Fields != nil {
		c.Fields = make(map[string]string, len(s.Fields))
		for k, v := range s.Fields {
			c.Fields[k] = v
		}
	}
	return c
}

// Store keeps sessions keyed by user id. Implementations must be safe for
// concurrent use and hand out copies.
//
// Every Clear advances the user's generation. Put succeeds only when the
// session's Gen still equals it, so a write prepared before a Clear cannot
// bring the cleared flow back.
type Store interface {
	Get(userID int64) Session
	Put(userID int64, s Session) error
	Clear(userID int64)
	Generation(userID int64) uint64
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	gens     map[int64]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session), gens: make(map[int64]uint64)}
}

func (m *MemoryStore) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[userID].clone()
	s.Gen = m.gens[userID]
	return s
}

// Put stores s. Inconsistent or stale sessions are rejected and leave the
// stored one untouched. An idle session without an order removes the entry.
func (m *MemoryStore) Put(userID int64, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur := m.gens[userID]; s.Gen != cur {
		return fmt.Errorf("%w: generation %d, now %d", ErrStale, s.Gen, cur)
	}
	if !s.Active() && s.OrderID == 0 {
		delete(m.sessions, userID)
		return nil
	}
	m.sessions[userID] = s.clone()
	return nil
}

func (m *MemoryStore) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	m.gens[userID]++
}

func (m *MemoryStore) Generation(userID int64) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gens[userID]
}

// Len reports how many users have a stored session.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
