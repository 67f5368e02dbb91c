// Package telegram delivers reminders to a Telegram chat, with inline
// buttons that come back as notification actions.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/notify"
)

var ErrBadCallback = errors.New("telegram: malformed callback data")

// API is the part of *tgbotapi.BotAPI the notifier uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type posted struct {
	messageID int
	payload   model.Payload
}

type Notifier struct {
	api    API
	chatID int64
	logger *slog.Logger

	mu   sync.Mutex
	live map[int64]posted
}

func Dial(token string, chatID int64, logger *slog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot api: %w", err)
	}
	logging.OrDiscard(logger).Info("telegram bot authorized", "account", api.Self.UserName)
	return New(api, chatID, logger), nil
}

func New(api API, chatID int64, logger *slog.Logger) *Notifier {
	return &Notifier{api: api, chatID: chatID, logger: logging.OrDiscard(logger), live: make(map[int64]posted)}
}

// Post sends n to the chat, replacing the message previously posted under
// key.
func (t *Notifier) Post(key int64, n notify.Notification) error {
	if err := t.Cancel(key); err != nil {
		t.logger.Warn("replacing telegram reminder failed", "task", key, "err", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, formatText(n))
	if keyboard, ok := keyboardFor(n); ok {
		msg.ReplyMarkup = keyboard
	}
	sent, err := t.api.Send(msg)
	if err != nil {
		return fmt.Errorf("telegram: send reminder for task %d: %w", key, err)
	}

	t.mu.Lock()
	t.live[key] = posted{messageID: sent.MessageID, payload: n.Payload}
	t.mu.Unlock()
	return nil
}

// Cancel deletes the chat message for key, if any.
func (t *Notifier) Cancel(key int64) error {
	t.mu.Lock()
	p, ok := t.live[key]
	delete(t.live, key)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(t.chatID, p.messageID)); err != nil {
		return fmt.Errorf("telegram: delete reminder for task %d: %w", key, err)
	}
	return nil
}

func (t *Notifier) PermissionGranted() bool {
	return t.chatID != 0
}

// Listen polls for button presses until ctx ends, handing each one to
// handle as an action.
func (t *Notifier) Listen(ctx context.Context, handle func(notify.Action)) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := t.api.GetUpdatesChan(cfg)

	go func() {
		<-ctx.Done()
		t.api.StopReceivingUpdates()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery == nil {
				continue
			}
			if err := t.handleCallback(update.CallbackQuery, handle); err != nil {
				t.logger.Warn("telegram callback ignored", "err", err)
			}
		}
	}
}

func (t *Notifier) handleCallback(cb *tgbotapi.CallbackQuery, handle func(notify.Action)) error {
	if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != t.chatID {
		return fmt.Errorf("callback from foreign chat")
	}
	action, err := parseCallback(cb.Data)
	if err != nil {
		return err
	}
	t.mu.Lock()
	if p, ok := t.live[action.Payload.TaskID]; ok && p.payload.TaskID != 0 {
		action.Payload = p.payload
	}
	t.mu.Unlock()

	if _, err := t.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		t.logger.Debug("answer callback failed", "err", err)
	}
	handle(action)
	return nil
}

func formatText(n notify.Notification) string {
	var b strings.Builder
	b.WriteString("⏰ ")
	b.WriteString(n.Header)
	b.WriteString("\n")
	b.WriteString(n.Body)
	return b.String()
}

// keyboardFor offers every action the notification carries except open,
// plus a Done button.
func keyboardFor(n notify.Notification) (tgbotapi.InlineKeyboardMarkup, bool) {
	if n.Payload.TaskID == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	row := make([]tgbotapi.InlineKeyboardButton, 0, 3)
	for _, a := range n.Actions {
		if a.Kind == notify.ActionOpen {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Label, callbackData(a.Kind, n.Payload)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("Done", callbackData(notify.ActionComplete, n.Payload)))
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}

func callbackData(kind notify.ActionKind, p model.Payload) string {
	return fmt.Sprintf("%s:%d:%d", kind, p.TaskID, p.AlarmID)
}

func parseCallback(data string) (notify.Action, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return notify.Action{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
	}
	kind := notify.ActionKind(parts[0])
	if !kind.IsValid() {
		return notify.Action{}, fmt.Errorf("%w: unknown action %q", ErrBadCallback, parts[0])
	}
	taskID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || taskID <= 0 {
		return notify.Action{}, fmt.Errorf("%w: task id %q", ErrBadCallback, parts[1])
	}
	alarmID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || alarmID < 0 {
		return notify.Action{}, fmt.Errorf("%w: alarm id %q", ErrBadCallback, parts[2])
	}
	return notify.Action{Kind: kind, Payload: model.Payload{TaskID: taskID, AlarmID: alarmID}}, nil
}
