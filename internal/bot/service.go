package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jordanhubbard/astrohub/internal/flow"
	"github.com/jordanhubbard/astrohub/internal/report"
	"github.com/jordanhubbard/astrohub/internal/store"
)

// Directory is the part of the store the command handlers use.
type Directory interface {
	UpsertProfile(ctx context.Context, p store.Profile) error
	ListRecentOrders(ctx context.Context, limit int) ([]store.Order, error)
}

type Config struct {
	OperatorID int64
	// TestMode skips invoices: the buy button starts the flow directly.
	TestMode bool
}

// Service answers commands, menu callbacks and payments, and hands flow
// input to the conversation machine.
type Service struct {
	cfg     Config
	out     Transport
	machine *flow.Machine
	dir     Directory
}

func NewService(cfg Config, out Transport, machine *flow.Machine, dir Directory) *Service {
	return &Service{cfg: cfg, out: out, machine: machine, dir: dir}
}

func user(ev Event) flow.User {
	return flow.User{ID: ev.UserID, ChatID: ev.ChatID, FullName: ev.FullName, Gen: ev.SessionGen}
}

// Intercept handles /cancel on arrival so it takes effect before anything
// still queued for the user. Other events are stamped with the session
// generation, so whatever was queued before a cancel cannot resume the
// cancelled flow or start a new one.
func (s *Service) Intercept(ctx context.Context, ev *Event) bool {
	if ev.Kind != EventCommand || ev.Command != "cancel" {
		ev.SessionGen = s.machine.Generation(ev.UserID)
		return false
	}
	if s.machine.Cancel(user(*ev)) {
		slog.Info("flow cancelled", slog.Int64("user_id", ev.UserID))
	}
	s.sendMenu(ctx, ev.ChatID)
	return true
}

// Handle processes one event. It is the Dispatcher's HandlerFunc.
func (s *Service) Handle(ctx context.Context, ev Event) {
	var err error
	switch ev.Kind {
	case EventCommand:
		err = s.command(ctx, ev)
	case EventText:
		err = s.machine.HandleText(ctx, user(ev), ev.Text)
	case EventPhoto:
		err = s.machine.HandlePhoto(ctx, user(ev), ev.PhotoID)
	case EventCallback:
		err = s.callback(ctx, ev)
	case EventPreCheckout:
		err = s.out.AnswerPreCheckout(ctx, ev.PreCheckoutID, true, "")
	case EventPayment:
		err = s.payment(ctx, ev)
	}
	if err != nil {
		slog.Error("event handling failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("kind", ev.Kind.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) sendMenu(ctx context.Context, chatID int64) {
	text := menuIntro
	if s.cfg.TestMode {
		text += testModeNote
	}
	if err := s.out.Send(ctx, chatID, text, menuKeyboard); err != nil {
		slog.Warn("failed to send menu", slog.String("error", err.Error()))
	}
}

func (s *Service) command(ctx context.Context, ev Event) error {
	switch ev.Command {
	case "start", "menu":
		err := s.dir.UpsertProfile(ctx, store.Profile{
			UserID:   ev.UserID,
			FullName: ev.FullName,
			Username: ev.Username,
			Lang:     ev.Lang,
		})
		if err != nil {
			slog.Warn("profile upsert failed", slog.Int64("user_id", ev.UserID), slog.String("error", err.Error()))
		}
		s.sendMenu(ctx, ev.ChatID)
		return nil
	case "cancel":
		s.Intercept(ctx, &ev)
		return nil
	case "whoami":
		return s.out.Notify(ctx, ev.ChatID, fmt.Sprintf("your id: %d\nADMIN_ID: %d\nTEST_MODE: %t",
			ev.UserID, s.cfg.OperatorID, s.cfg.TestMode))
	case "orders_last":
		return s.ordersLast(ctx, ev)
	}
	return nil
}

// ParseLimit reads the optional /orders_last argument: default 5, clamped
// to 1..50, and 5 for anything unparseable.
func ParseLimit(args string) int {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 5
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 5
	}
	return max(1, min(n, 50))
}

func (s *Service) ordersLast(ctx context.Context, ev Event) error {
	if s.cfg.OperatorID == 0 || ev.UserID != s.cfg.OperatorID {
		return s.out.Notify(ctx, ev.ChatID, notAllowed)
	}
	orders, err := s.dir.ListRecentOrders(ctx, ParseLimit(ev.Args))
	if err != nil {
		return fmt.Errorf("orders_last: %w", err)
	}
	if len(orders) == 0 {
		return s.out.Notify(ctx, ev.ChatID, noOrders)
	}
	lines := []string{ordersHeader}
	for _, o := range orders {
		date := ""
		if !o.CreatedAt.IsZero() {
			date = o.CreatedAt.Format("2006-01-02")
		}
		lines = append(lines, fmt.Sprintf("• #%d | user:%d | %s %d⭐ | %s | %s",
			o.ID, o.UserID, html.EscapeString(o.Payload), o.Amount, o.Status, date))
	}
	return s.out.Notify(ctx, ev.ChatID, strings.Join(lines, "\n"))
}

func (s *Service) callback(ctx context.Context, ev Event) error {
	if err := s.out.AnswerCallback(ctx, ev.Callback.ID); err != nil {
		slog.Debug("callback answer failed", slog.String("error", err.Error()))
	}
	data := ev.Callback.Data

	if kind, ok := callbackKinds[data]; ok {
		kb := Keyboard{
			{{Text: fmt.Sprintf("Оплатить %d ⭐", kind.Amount()), Data: callbackBuyPfx + data}},
			{{Text: backButton, Data: callbackBack}},
		}
		if err := s.out.Edit(ctx, ev.ChatID, ev.Callback.MessageID, captions[kind], kb); err != nil {
			// The menu message may be gone or not editable.
			return s.out.Send(ctx, ev.ChatID, captions[kind], kb)
		}
		return nil
	}

	if data == callbackBack {
		if err := s.out.Delete(ctx, ev.ChatID, ev.Callback.MessageID); err != nil {
			slog.Debug("menu delete failed", slog.String("error", err.Error()))
		}
		s.sendMenu(ctx, ev.ChatID)
		return nil
	}

	if name, ok := strings.CutPrefix(data, callbackBuyPfx); ok {
		if kind, ok := callbackKinds[name]; ok {
			if s.cfg.TestMode {
				return s.machine.Begin(ctx, user(ev), kind, "")
			}
			return s.out.SendInvoice(ctx, ev.ChatID, Invoice{
				Title:       kind.Title(),
				Description: kind.Description(),
				Payload:     kind.Payload(),
				Amount:      kind.Amount(),
			})
		}
	}

	return s.out.Edit(ctx, ev.ChatID, ev.Callback.MessageID, chooseService, nil)
}

func (s *Service) payment(ctx context.Context, ev Event) error {
	slog.Info("payment received",
		slog.Int64("user_id", ev.UserID),
		slog.String("payload", ev.Payment.Payload),
		slog.String("charge_id", ev.Payment.ChargeID),
		slog.Int("amount", ev.Payment.Amount),
		slog.String("currency", ev.Payment.Currency),
	)
	kind, err := report.FromPayload(ev.Payment.Payload)
	if err != nil {
		slog.Warn("payment for unknown product", slog.String("error", err.Error()))
		return s.out.Notify(ctx, ev.ChatID, paymentNoFlow)
	}
	return s.machine.Begin(ctx, user(ev), kind, ev.Payment.ChargeID)
}
