package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an order or profile does not exist.
var ErrNotFound = errors.New("store: not found")

// Store defines the persistence interface for astrohub.
type Store interface {
	// Orders
	CreateOrder(ctx context.Context, o NewOrder) (Order, bool, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	UpdateOrder(ctx context.Context, id int64, u OrderUpdate) error
	ListRecentOrders(ctx context.Context, limit int) ([]Order, error)

	// Profiles
	UpsertProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, userID int64) (Profile, error)

	// Report runs (pipeline audit trail for the admin API)
	LogRun(ctx context.Context, r ReportRun) error
	ListRuns(ctx context.Context, limit int, offset int) ([]ReportRun, error)

	// Schema lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Status is the order lifecycle state. It only moves forward.
type Status string

const (
	StatusAwaitingInput Status = "awaiting_input"
	StatusDone          Status = "done"
)

// NewOrder is the input to CreateOrder. A non-empty ChargeID makes creation
// idempotent: a second call with the same charge returns the first order.
type NewOrder struct {
	UserID   int64
	Kind     string
	Payload  string
	Amount   int
	ChargeID string
	Meta     map[string]any
}

// Order is the persisted form of a purchase and its report trace.
type Order struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Kind      string         `json:"kind"`
	Payload   string         `json:"payload"`
	Amount    int            `json:"amount_stars"`
	ChargeID  string         `json:"charge_id,omitempty"`
	Status    Status         `json:"status"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// OrderUpdate describes a partial order mutation. Empty fields are left
// unchanged; Meta keys are merged into the existing metadata one by one.
// A done order never reverts to an earlier status.
type OrderUpdate struct {
	Status   Status
	ChargeID string
	Meta     map[string]any
}

// Profile is the last-known identity of a chat user.
type Profile struct {
	UserID    int64     `json:"user_id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// ReportRun captures one pipeline invocation for audit/dashboard.
type ReportRun struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	OrderID     int64     `json:"order_id"`
	Kind        string    `json:"kind"`
	ProviderID  string    `json:"provider_id,omitempty"`
	Model       string    `json:"model,omitempty"`
	Outcome     string    `json:"outcome"`
	RepairStage string    `json:"repair_stage,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
	Vision      bool      `json:"vision"`
}
