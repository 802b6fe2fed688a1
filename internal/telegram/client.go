// Package telegram connects the bot to the Telegram Bot API over long
// polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jordanhubbard/astrohub/internal/bot"
	"github.com/jordanhubbard/astrohub/internal/logging"
)

// MaxFileSize caps photo downloads for vision requests.
const MaxFileSize = 20 << 20

// api is the subset of *tgbotapi.BotAPI the client uses.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client implements bot.Transport, flow.Notifier and router.FileFetcher.
type Client struct {
	api   api
	token string
	http  *http.Client
	// fileURL formats token and file path into a download URL.
	fileURL string
}

// New connects with token. It calls getMe, so an invalid token fails here.
func New(token string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	b, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s", logging.StripBotToken(err.Error()))
	}
	slog.Info("telegram bot authorized", slog.String("username", b.Self.UserName))
	return &Client{api: b, token: token, http: httpClient, fileURL: tgbotapi.FileEndpoint}, nil
}

func (c *Client) Notify(ctx context.Context, chatID int64, html string) error {
	return c.Send(ctx, chatID, html, nil)
}

// Send delivers html, split into several messages when it exceeds Telegram's
// limit. The keyboard goes with the last part.
func (c *Client) Send(_ context.Context, chatID int64, html string, kb bot.Keyboard) error {
	parts := Split(html, MaxMessageLen)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if len(kb) > 0 && i == len(parts)-1 {
			msg.ReplyMarkup = markup(kb)
		}
		if _, err := c.api.Send(msg); err != nil {
			return c.wrap("send", err)
		}
	}
	return nil
}

// MaxMessageLen is Telegram's per-message text limit, in characters.
const MaxMessageLen = 4096

// Split breaks html into parts of at most limit characters, cutting at line
// breaks where it can. Report markup is balanced per line, so line cuts keep
// every part valid HTML. A line longer than limit is cut at its last space
// that fits, or mid-word when it has none.
func Split(html string, limit int) []string {
	if utf8.RuneCountInString(html) <= limit {
		return []string{html}
	}
	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, line := range strings.Split(html, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			head, rest := cutLine(line, limit)
			parts = append(parts, head)
			line = rest
		}
		n := utf8.RuneCountInString(line)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return parts
}

// cutLine splits line after at most limit runes, preferring the last space.
func cutLine(line string, limit int) (string, string) {
	r := []rune(line)
	for i := limit; i > limit/2; i-- {
		if r[i] == ' ' {
			return string(r[:i]), string(r[i+1:])
		}
	}
	return string(r[:limit]), string(r[limit:])
}

func (c *Client) Edit(_ context.Context, chatID int64, messageID int, html string, kb bot.Keyboard) error {
	var edit tgbotapi.EditMessageTextConfig
	if len(kb) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, html, markup(kb))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, html)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := c.api.Send(edit)
	return c.wrap("edit", err)
}

func (c *Client) Delete(_ context.Context, chatID int64, messageID int) error {
	_, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return c.wrap("delete", err)
}

func (c *Client) AnswerCallback(_ context.Context, callbackID string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return c.wrap("answer callback", err)
}

func (c *Client) AnswerPreCheckout(_ context.Context, queryID string, ok bool, errMsg string) error {
	_, err := c.api.Request(tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errMsg,
	})
	return c.wrap("answer pre-checkout", err)
}

// SendInvoice sends a Telegram Stars invoice. Stars use currency XTR and an
// empty provider token; the amount is the number of stars.
func (c *Client) SendInvoice(_ context.Context, chatID int64, inv bot.Invoice) error {
	cfg := tgbotapi.NewInvoice(chatID, inv.Title, inv.Description, inv.Payload, "", "buy", "XTR",
		[]tgbotapi.LabeledPrice{{Label: inv.Title, Amount: inv.Amount}})
	cfg.SuggestedTipAmounts = []int{}
	_, err := c.api.Send(cfg)
	return c.wrap("send invoice", err)
}

// FetchFile downloads the file behind fileID. The returned path is
// Telegram's file path, which carries the extension.
func (c *Client) FetchFile(ctx context.Context, fileID string) ([]byte, string, error) {
	f, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", c.wrap("get file", err)
	}
	if f.FilePath == "" {
		return nil, "", errors.New("telegram: file has no path")
	}
	url := fmt.Sprintf(c.fileURL, c.token, f.FilePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", c.wrap("download", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", c.wrap("download", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("telegram: download %s: HTTP %d", f.FilePath, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, "", c.wrap("download", err)
	}
	if len(data) > MaxFileSize {
		return nil, "", fmt.Errorf("telegram: file %s exceeds %d bytes", f.FilePath, MaxFileSize)
	}
	return data, f.FilePath, nil
}

// Run long-polls for updates and dispatches them until ctx is done.
func (c *Client) Run(ctx context.Context, d *bot.Dispatcher) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)
	slog.Info("telegram long polling started")

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := Translate(upd); ok {
				d.Dispatch(ctx, ev)
			}
		}
	}
}

// wrap keeps the bot token out of error text; net/http errors quote the
// request URL, which embeds it.
func (c *Client) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if c.token != "" {
		msg = strings.ReplaceAll(msg, c.token, "[REDACTED]")
	}
	return fmt.Errorf("telegram %s: %s", op, msg)
}

func markup(kb bot.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
