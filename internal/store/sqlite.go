package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const memoryDSN = ":memory:"

// SQLiteStore implements Store using modernc.org/sqlite (pure-Go, no CGO).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates a SQLite database at the given DSN.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withBusyTimeout(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == memoryDSN {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragmas: %w", err)
		}
		// SQLite only supports one writer at a time. Limit connections to avoid
		// contention and keep a small idle pool for read concurrency.
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(time.Hour)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// withBusyTimeout applies busy_timeout to every pooled connection, not just
// the first one.
func withBusyTimeout(dsn string) string {
	if dsn == memoryDSN || strings.Contains(dsn, "_pragma=busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// DB returns the underlying sql.DB handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id INTEGER PRIMARY KEY,
			full_name TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			last_seen TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			amount_stars INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'awaiting_input',
			charge_id TEXT,
			meta_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_charge_id ON orders(charge_id) WHERE charge_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
		`CREATE TABLE IF NOT EXISTS report_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			order_id INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL,
			provider_id TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			repair_stage TEXT NOT NULL DEFAULT '',
			latency_ms INTEGER NOT NULL DEFAULT 0,
			vision INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_runs_order ON report_runs(order_id)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

// Orders

const orderColumns = `id, user_id, kind, payload, amount_stars, status, charge_id, meta_json, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (Order, error) {
	var o Order
	var chargeID sql.NullString
	var meta, createdAt, updatedAt string
	if err := r.Scan(&o.ID, &o.UserID, &o.Kind, &o.Payload, &o.Amount, &o.Status,
		&chargeID, &meta, &createdAt, &updatedAt); err != nil {
		return Order{}, err
	}
	o.ChargeID = chargeID.String
	o.Meta = map[string]any{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &o.Meta); err != nil {
			return Order{}, fmt.Errorf("order %d: decode meta: %w", o.ID, err)
		}
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return o, nil
}

// CreateOrder inserts a new order in awaiting_input. When o.ChargeID was
// already recorded the existing order is returned and created is false.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o NewOrder) (Order, bool, error) {
	meta := o.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return Order{}, false, fmt.Errorf("encode meta: %w", err)
	}
	var chargeID any
	if o.ChargeID != "" {
		chargeID = o.ChargeID
	}
	now := s.timestamp()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (user_id, kind, payload, amount_stars, status, charge_id, meta_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		o.UserID, o.Kind, o.Payload, o.Amount, string(StatusAwaitingInput), chargeID, string(metaJSON), now, now)
	if err != nil {
		return Order{}, false, fmt.Errorf("insert order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Order{}, false, err
	}
	if n == 0 {
		existing, err := scanOrder(s.db.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE charge_id = ?`, o.ChargeID))
		if err != nil {
			return Order{}, false, fmt.Errorf("lookup order by charge: %w", err)
		}
		return existing, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Order{}, false, err
	}
	created, err := s.GetOrder(ctx, id)
	return created, true, err
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// UpdateOrder applies u in a single statement. Metadata is merged key by key
// inside SQLite, so concurrent updates never drop each other's keys.
func (s *SQLiteStore) UpdateOrder(ctx context.Context, id int64, u OrderUpdate) error {
	var status, chargeID any
	if u.Status != "" {
		status = string(u.Status)
	}
	if u.ChargeID != "" {
		chargeID = u.ChargeID
	}

	metaExpr := "meta_json"
	var metaArgs []any
	if len(u.Meta) > 0 {
		keys := make([]string, 0, len(u.Meta))
		for k := range u.Meta {
			if k == "" || strings.ContainsAny(k, `"\`) {
				return fmt.Errorf("invalid meta key %q", k)
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString("json_set(COALESCE(NULLIF(meta_json, ''), '{}')")
		for _, k := range keys {
			v, err := json.Marshal(u.Meta[k])
			if err != nil {
				return fmt.Errorf("encode meta %q: %w", k, err)
			}
			b.WriteString(`, '$."` + k + `"', json(?)`)
			metaArgs = append(metaArgs, string(v))
		}
		b.WriteString(")")
		metaExpr = b.String()
	}

	q := `UPDATE orders SET
		status = CASE WHEN status = 'done' THEN 'done' ELSE COALESCE(?, status) END,
		charge_id = COALESCE(?, charge_id),
		meta_json = ` + metaExpr + `,
		updated_at = ?
		WHERE id = ?`
	args := append([]any{status, chargeID}, metaArgs...)
	args = append(args, s.timestamp(), id)

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentOrders returns up to limit orders, newest first.
func (s *SQLiteStore) ListRecentOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Profiles

func (s *SQLiteStore) UpsertProfile(ctx context.Context, p Profile) error {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, full_name, username, lang, created_at, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   full_name=excluded.full_name, username=excluded.username,
		   lang=excluded.lang, last_seen=excluded.last_seen`,
		p.UserID, p.FullName, p.Username, p.Lang, now, now)
	return err
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	var p Profile
	var createdAt, lastSeen string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, full_name, username, lang, created_at, last_seen FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.FullName, &p.Username, &p.Lang, &createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.LastSeen = parseTime(lastSeen)
	return p, nil
}

// Report runs

func (s *SQLiteStore) LogRun(ctx context.Context, r ReportRun) error {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	vision := 0
	if r.Vision {
		vision = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_runs (timestamp, run_id, order_id, kind, provider_id, model, outcome, repair_stage, latency_ms, vision)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano), r.RunID, r.OrderID, r.Kind, r.ProviderID, r.Model,
		r.Outcome, r.RepairStage, r.LatencyMs, vision)
	return err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int, offset int) ([]ReportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, run_id, order_id, kind, provider_id, model, outcome, repair_stage, latency_ms, vision
		 FROM report_runs ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []ReportRun
	for rows.Next() {
		var r ReportRun
		var ts string
		var vision int
		if err := rows.Scan(&r.ID, &ts, &r.RunID, &r.OrderID, &r.Kind, &r.ProviderID, &r.Model,
			&r.Outcome, &r.RepairStage, &r.LatencyMs, &vision); err != nil {
			return nil, err
		}
		r.Timestamp = parseTime(ts)
		r.Vision = vision != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
