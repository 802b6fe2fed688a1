// Package flow sequences data collection for each report kind and runs the
// report pipeline once per completed input.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jordanhubbard/astrohub/internal/intake"
	"github.com/jordanhubbard/astrohub/internal/numerology"
	"github.com/jordanhubbard/astrohub/internal/prompt"
	"github.com/jordanhubbard/astrohub/internal/report"
	"github.com/jordanhubbard/astrohub/internal/session"
	"github.com/jordanhubbard/astrohub/internal/store"
)

// Notifier delivers an HTML message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, html string) error
}

// User identifies who sent an event and where replies go.
type User struct {
	ID       int64
	ChatID   int64
	FullName string
	// Gen is the user's session generation when the event arrived. Input
	// that arrived before a later cancel is ignored.
	Gen uint64
}

type Config struct {
	// OperatorID receives technical failure details. Zero disables them.
	OperatorID int64
	// NatalStepwise collects natal data one field per message.
	NatalStepwise bool
}

// Machine is the per-user conversation state machine. Calls for one user
// must be serialized by the caller; different users may run in parallel.
type Machine struct {
	cfg      Config
	sessions session.Store
	ledger   Ledger
	out      Notifier
	pipeline *Pipeline
	metrics  Recorder
}

func NewMachine(cfg Config, sessions session.Store, ledger Ledger, out Notifier, pipeline *Pipeline) *Machine {
	return &Machine{cfg: cfg, sessions: sessions, ledger: ledger, out: out, pipeline: pipeline}
}

// SetRecorder attaches a metrics recorder for order creation.
func (m *Machine) SetRecorder(r Recorder) { m.metrics = r }

// IsOperator reports whether userID is the configured operator.
func (m *Machine) IsOperator(userID int64) bool {
	return m.cfg.OperatorID != 0 && userID == m.cfg.OperatorID
}

// Session returns a copy of the user's session.
func (m *Machine) Session(userID int64) session.Session {
	return m.sessions.Get(userID)
}

func (m *Machine) say(ctx context.Context, u User, text string) {
	if err := m.out.Notify(ctx, u.ChatID, text); err != nil {
		slog.Warn("failed to deliver message",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Begin creates the order for a completed payment and starts the kind's
// flow. Replaying a charge that was already recorded does not create a
// second order.
func (m *Machine) Begin(ctx context.Context, u User, kind report.Kind, chargeID string) error {
	if !kind.Valid() {
		return fmt.Errorf("begin: unknown report kind %q", kind)
	}
	order, created, err := m.ledger.CreateOrder(ctx, store.NewOrder{
		UserID:   u.ID,
		Kind:     string(kind),
		Payload:  kind.Payload(),
		Amount:   kind.Amount(),
		ChargeID: chargeID,
	})
	if err != nil {
		return fmt.Errorf("begin %s: %w", kind, err)
	}
	if !created {
		slog.Info("payment replayed", slog.Int64("order_id", order.ID), slog.String("status", string(order.Status)))
		if order.Status == store.StatusDone {
			m.say(ctx, u, paymentAlreadyUsed)
			return nil
		}
	} else if m.metrics != nil {
		m.metrics.ObserveOrder(string(kind))
	}

	s := session.Session{Flow: kind, OrderID: order.ID, Gen: u.Gen}
	var ask string
	switch kind {
	case report.Numerology:
		s.State, ask = session.StateNumInput, askNumInput
	case report.Palmistry:
		s.State, ask = session.StatePalmPhoto, askPalmPhoto
	case report.Natal:
		s.State, ask = session.StateNatalAll, askNatalAll
		if m.cfg.NatalStepwise {
			s.State, ask = session.StateNatalDate, askNatalDate
		}
	}
	if err := m.sessions.Put(u.ID, s); err != nil {
		if !errors.Is(err, session.ErrStale) {
			return err
		}
		// The order stays awaiting input; the charge is already recorded.
		slog.Info("payment handled after cancel, flow not started",
			slog.Int64("user_id", u.ID),
			slog.Int64("order_id", order.ID),
		)
		m.say(ctx, u, paymentAfterCancel(order.ID))
		return nil
	}
	slog.Info("flow started",
		slog.Int64("user_id", u.ID),
		slog.Int64("order_id", order.ID),
		slog.String("kind", string(kind)),
	)
	m.say(ctx, u, ask)
	return nil
}

// Cancel drops the user's session. The order is left as it is. It reports
// whether a flow was active.
func (m *Machine) Cancel(u User) bool {
	active := m.sessions.Get(u.ID).Active()
	m.sessions.Clear(u.ID)
	return active
}

// Generation returns the user's current session generation, for stamping
// events as they arrive.
func (m *Machine) Generation(userID int64) uint64 {
	return m.sessions.Generation(userID)
}

// current returns the user's session, or false when u predates a cancel.
func (m *Machine) current(u User) (session.Session, bool) {
	s := m.sessions.Get(u.ID)
	if s.Gen != u.Gen {
		slog.Debug("dropping input from before a cancel", slog.Int64("user_id", u.ID))
		return session.Session{}, false
	}
	return s, true
}

// save stores next and reports whether the flow is still live. A cancel
// that ran after the session was read wins over the write.
func (m *Machine) save(u User, next session.Session) (bool, error) {
	err := m.sessions.Put(u.ID, next)
	if errors.Is(err, session.ErrStale) {
		slog.Info("flow cancelled while input was handled",
			slog.Int64("user_id", u.ID),
			slog.Int64("order_id", next.OrderID),
		)
		return false, nil
	}
	return err == nil, err
}

// HandleText feeds a text message into the active flow. Text without an
// active flow is ignored.
func (m *Machine) HandleText(ctx context.Context, u User, text string) error {
	s, ok := m.current(u)
	if !ok {
		return nil
	}
	switch s.State {
	case session.StateNone:
		return nil
	case session.StateNumInput:
		return m.numInput(ctx, u, s, text)
	case session.StatePalmPhoto:
		m.say(ctx, u, repromptPalmPhoto)
		return nil
	case session.StatePalmContext:
		return m.palmContext(ctx, u, s, text)
	case session.StateNatalAll:
		return m.natalAll(ctx, u, s, text)
	case session.StateNatalDate, session.StateNatalTime, session.StateNatalCity:
		return m.natalStep(ctx, u, s, text)
	}
	return fmt.Errorf("%w: state %q", session.ErrInconsistent, s.State)
}

// HandlePhoto feeds a photo into the active flow.
func (m *Machine) HandlePhoto(ctx context.Context, u User, fileID string) error {
	s, ok := m.current(u)
	if !ok {
		return nil
	}
	switch s.State {
	case session.StateNone:
		return nil
	case session.StatePalmPhoto:
		if fileID == "" {
			m.say(ctx, u, repromptPalmPhoto)
			return nil
		}
		next := s.With(session.FieldPhotoID, fileID)
		next.State = session.StatePalmContext
		if ok, err := m.save(u, next); !ok {
			return err
		}
		m.say(ctx, u, askPalmContext)
		return nil
	default:
		m.say(ctx, u, repromptText)
		return nil
	}
}

// reject answers a validation failure. Other errors are returned.
func (m *Machine) reject(ctx context.Context, u User, err error) error {
	var ve *intake.ValidationError
	if errors.As(err, &ve) {
		m.say(ctx, u, ve.Message)
		return nil
	}
	return err
}

// complete ends the flow: the session goes idle (keeping the order id so the
// result can be matched), the order is marked done with the collected
// fields, and the acknowledgements are sent. It returns false, touching
// nothing, when the flow was cancelled meanwhile.
func (m *Machine) complete(ctx context.Context, u User, s session.Session, fields map[string]any, acks ...string) bool {
	ok, err := m.save(u, session.Session{OrderID: s.OrderID, Gen: s.Gen})
	if err != nil {
		slog.Error("failed to close session", slog.Int64("user_id", u.ID), slog.String("error", err.Error()))
	} else if !ok {
		return false
	}
	if err := m.ledger.UpdateOrder(ctx, s.OrderID, store.OrderUpdate{Status: store.StatusDone, Meta: fields}); err != nil {
		slog.Error("failed to record collected input",
			slog.Int64("order_id", s.OrderID),
			slog.String("error", err.Error()),
		)
	}
	for _, a := range acks {
		m.say(ctx, u, a)
	}
	return true
}

// run invokes the pipeline and delivers the result if the user's session
// still belongs to the same order.
func (m *Machine) run(ctx context.Context, u User, job Job) {
	res := m.pipeline.Run(ctx, job)
	if live := m.sessions.Get(u.ID); live.OrderID != job.OrderID {
		slog.Info("dropping stale report result",
			slog.String("run_id", res.RunID),
			slog.Int64("order_id", job.OrderID),
			slog.Int64("live_order_id", live.OrderID),
		)
		return
	}
	// Operators get the technical detail in place of the soft text on
	// provider errors, and in addition to it on parse errors.
	if m.IsOperator(u.ID) && len(res.Operator) > 0 {
		for _, msg := range res.Operator {
			m.say(ctx, u, msg)
		}
		if res.Outcome != OutcomeParseError {
			return
		}
	}
	for _, msg := range res.User {
		m.say(ctx, u, msg)
	}
}

func (m *Machine) numInput(ctx context.Context, u User, s session.Session, text string) error {
	in, err := intake.NumerologyLine(text)
	if err != nil {
		return m.reject(ctx, u, err)
	}
	lp := numerology.LifePath(in.Date)
	counts := numerology.CountDigits(in.Date)

	done := m.complete(ctx, u, s, map[string]any{
		"num_dob":           in.Date,
		"num_name":          in.FullName,
		"life_path":         lp,
		"pythagoras_counts": counts.Map(),
		"pythagoras_lines":  numerology.LineTotals(counts),
		"pythagoras_ext":    numerology.Extend(counts),
	}, expressNumerology(in.FullName, in.Date, lp, counts))
	if !done {
		return nil
	}

	m.run(ctx, u, Job{
		OrderID: s.OrderID,
		Input:   prompt.Numerology{FullName: in.FullName, DOB: in.Date, LifePath: lp, Counts: counts},
	})
	return nil
}

func (m *Machine) palmContext(ctx context.Context, u User, s session.Session, text string) error {
	photoID := s.Field(session.FieldPhotoID)
	if photoID == "" {
		next := s.Without(session.FieldPhotoID)
		next.State = session.StatePalmPhoto
		if ok, err := m.save(u, next); !ok {
			return err
		}
		m.say(ctx, u, repromptPalmLost)
		return nil
	}
	pc := intake.Palm(text)

	fields := map[string]any{"palm_photo_file_id": photoID}
	if pc.Provided {
		fields["palm_context"] = pc.Text
	}
	if pc.Dominant != intake.HandUnknown {
		fields["palm_dominant_hand"] = string(pc.Dominant)
	}
	if !m.complete(ctx, u, s, fields, palmGenerating) {
		return nil
	}

	m.run(ctx, u, Job{
		OrderID: s.OrderID,
		PhotoID: photoID,
		Input: prompt.Palm{
			FullName:     u.FullName,
			DominantHand: string(pc.Dominant),
			Context:      pc.Text,
			FileID:       photoID,
		},
	})
	return nil
}

func (m *Machine) natalAll(ctx context.Context, u User, s session.Session, text string) error {
	n, err := intake.NatalAll(text)
	if err != nil {
		return m.reject(ctx, u, err)
	}
	m.finishNatal(ctx, u, s, n)
	return nil
}

func (m *Machine) natalStep(ctx context.Context, u User, s session.Session, text string) error {
	next := s
	var ask string
	switch s.State {
	case session.StateNatalDate:
		d, err := intake.Date(text)
		if err != nil {
			return m.reject(ctx, u, err)
		}
		next = s.With(session.FieldDate, d)
		next.State, ask = session.StateNatalTime, askNatalTime
	case session.StateNatalTime:
		t, err := intake.Time(text)
		if err != nil {
			return m.reject(ctx, u, err)
		}
		next = s.With(session.FieldTime, t.String())
		next.State, ask = session.StateNatalCity, askNatalCity
	case session.StateNatalCity:
		city, err := intake.City(text)
		if err != nil {
			return m.reject(ctx, u, err)
		}
		var tod intake.TimeOfDay
		if v := s.Field(session.FieldTime); v != "" {
			tod, _ = intake.Time(v)
		}
		m.finishNatal(ctx, u, s, intake.Natal{
			FullName: u.FullName,
			Date:     s.Field(session.FieldDate),
			Time:     tod,
			City:     city,
		})
		return nil
	}
	if ok, err := m.save(u, next); !ok {
		return err
	}
	m.say(ctx, u, ask)
	return nil
}

func (m *Machine) finishNatal(ctx context.Context, u User, s session.Session, n intake.Natal) {
	done := m.complete(ctx, u, s, map[string]any{
		"natal_full_name": n.FullName,
		"natal_date":      n.Date,
		"natal_time":      n.Time,
		"natal_city":      n.City,
	}, natalAck(n))
	if !done {
		return
	}

	m.run(ctx, u, Job{
		OrderID: s.OrderID,
		Input: prompt.Natal{
			FullName: n.FullName,
			Date:     n.Date,
			Time:     n.Time.String(),
			City:     n.City,
			LifePath: numerology.LifePath(n.Date),
		},
	})
}
