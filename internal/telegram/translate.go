package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jordanhubbard/astrohub/internal/bot"
)

// Translate converts an update into a bot.Event. Updates the bot does not
// act on (edited messages, stickers, channel posts) report false.
func Translate(u tgbotapi.Update) (bot.Event, bool) {
	switch {
	case u.PreCheckoutQuery != nil:
		q := u.PreCheckoutQuery
		ev := withUser(bot.Event{Kind: bot.EventPreCheckout, PreCheckoutID: q.ID}, q.From)
		ev.ChatID = ev.UserID
		return ev, true

	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		ev := withUser(bot.Event{Kind: bot.EventCallback}, q.From)
		ev.Callback = bot.Callback{ID: q.ID, Data: q.Data}
		ev.ChatID = ev.UserID
		if q.Message != nil {
			ev.Callback.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				ev.ChatID = q.Message.Chat.ID
			}
		}
		return ev, true

	case u.Message != nil:
		return translateMessage(u.Message)
	}
	return bot.Event{}, false
}

func translateMessage(m *tgbotapi.Message) (bot.Event, bool) {
	if m.From == nil || m.Chat == nil {
		return bot.Event{}, false
	}
	ev := withUser(bot.Event{ChatID: m.Chat.ID}, m.From)

	switch {
	case m.SuccessfulPayment != nil:
		p := m.SuccessfulPayment
		ev.Kind = bot.EventPayment
		ev.Payment = bot.Payment{
			Payload:  p.InvoicePayload,
			ChargeID: p.TelegramPaymentChargeID,
			Amount:   p.TotalAmount,
			Currency: p.Currency,
		}
	case m.IsCommand():
		ev.Kind = bot.EventCommand
		ev.Command = m.Command()
		ev.Args = m.CommandArguments()
	case len(m.Photo) > 0:
		ev.Kind = bot.EventPhoto
		ev.PhotoID = largest(m.Photo).FileID
	case m.Text != "":
		ev.Kind = bot.EventText
		ev.Text = m.Text
	default:
		return bot.Event{}, false
	}
	return ev, true
}

func withUser(ev bot.Event, u *tgbotapi.User) bot.Event {
	if u == nil {
		return ev
	}
	ev.UserID = u.ID
	ev.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	ev.Username = u.UserName
	ev.Lang = u.LanguageCode
	return ev
}

// largest picks the highest resolution size; Telegram lists them ascending
// but that is not guaranteed.
func largest(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}
