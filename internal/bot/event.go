// Package bot routes chat events to the conversation machine. Events for one
// user are handled strictly in order; different users run in parallel.
package bot

import "context"

// EventKind says which fields of an Event are set.
type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventText
	EventPhoto
	EventCallback
	EventPreCheckout
	EventPayment
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventCallback:
		return "callback"
	case EventPreCheckout:
		return "pre_checkout"
	case EventPayment:
		return "payment"
	}
	return "unknown"
}

// Event is a transport-neutral chat update.
type Event struct {
	Kind EventKind

	UserID   int64
	ChatID   int64
	FullName string
	Username string
	Lang     string

	Text    string
	PhotoID string

	// Command is the bot command without the slash or @botname; Args is the
	// rest of the line.
	Command string
	Args    string

	Callback Callback
	Payment  Payment

	// PreCheckoutID identifies a pre-checkout query to answer.
	PreCheckoutID string

	// SessionGen is the user's session generation on arrival, stamped by
	// Service.Intercept.
	SessionGen uint64
}

// Callback is an inline keyboard button press.
type Callback struct {
	ID        string
	Data      string
	MessageID int
}

// Payment is a completed Telegram Stars payment.
type Payment struct {
	Payload  string
	ChargeID string
	Amount   int
	Currency string
}

// Button is one inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// Invoice is a Telegram Stars invoice for one report kind.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Amount      int
}

// Transport is the outbound side of the chat connection. All text is HTML.
type Transport interface {
	Notify(ctx context.Context, chatID int64, html string) error
	Send(ctx context.Context, chatID int64, html string, kb Keyboard) error
	Edit(ctx context.Context, chatID int64, messageID int, html string, kb Keyboard) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID string) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errMsg string) error
	SendInvoice(ctx context.Context, chatID int64, inv Invoice) error
}
