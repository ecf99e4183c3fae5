package telegram

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/influencer-desk/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxMessageRunes   = 4096
	maxCallbackBytes  = 64
	restartCommand    = "restart"
	restartButtonData = "restart"
)

// inbound is an update reduced to what the controller needs.
type inbound struct {
	event      domain.Event
	chatID     int64
	callbackID string
}

// UserID namespaces Telegram user ids so they never collide with web ids.
func UserID(id int64) string {
	return "tg:" + strconv.FormatInt(id, 10)
}

func eventFromUpdate(u tgbotapi.Update) (inbound, bool) {
	if cb := u.CallbackQuery; cb != nil {
		if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil || cb.Data == "" {
			return inbound{}, false
		}
		return inbound{
			event:      domain.Event{UserID: UserID(cb.From.ID), Kind: domain.EventButton, Payload: cb.Data},
			chatID:     cb.Message.Chat.ID,
			callbackID: cb.ID,
		}, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return inbound{}, false
	}
	in := inbound{chatID: msg.Chat.ID, event: domain.Event{UserID: UserID(msg.From.ID)}}

	switch {
	case msg.Contact != nil:
		// Only the sender's own number counts as a phone answer.
		if msg.Contact.UserID != 0 && msg.Contact.UserID != msg.From.ID {
			return inbound{}, false
		}
		in.event.Kind = domain.EventContact
		in.event.Payload = msg.Contact.PhoneNumber
	case msg.IsCommand() && msg.Command() == "start":
		in.event.Kind = domain.EventStart
		in.event.Payload = strings.TrimSpace(msg.CommandArguments())
	case msg.IsCommand() && msg.Command() == restartCommand:
		in.event.Kind = domain.EventButton
		in.event.Payload = restartButtonData
	case strings.TrimSpace(msg.Text) != "":
		in.event.Kind = domain.EventText
		in.event.Payload = msg.Text
	default:
		return inbound{}, false
	}
	return in, true
}

// render maps a view to the messages sent back, in order.
func (b *Bot) render(chatID int64, v domain.View) []tgbotapi.Chattable {
	chunks := splitText(b.policy.Sanitize(v.Text), maxMessageRunes)

	var out []tgbotapi.Chattable
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(chunks)-1 {
			if markup, ok := b.replyMarkup(v); ok {
				msg.ReplyMarkup = markup
			}
		}
		out = append(out, msg)
	}

	if v.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: v.Document.Filename, Bytes: v.Document.Data})
		out = append(out, doc)
	}
	return out
}

func (b *Bot) replyMarkup(v domain.View) (any, bool) {
	if v.RequestContact {
		kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(b.texts.ContactButton)))
		kb.OneTimeKeyboard = true
		return kb, true
	}
	kb, ok := b.inlineKeyboard(v.Buttons)
	if !ok {
		return nil, false
	}
	return kb, true
}

// inlineKeyboard converts button rows, dropping buttons whose payload
// exceeds Telegram's callback data limit.
func (b *Bot) inlineKeyboard(rows [][]domain.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	var out [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var r []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if len(btn.Value) > maxCallbackBytes {
				b.logger.Warn("Button payload too long for Telegram", "payload", btn.Value)
				continue
			}
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Value))
		}
		if len(r) > 0 {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}

// splitText cuts s into chunks of at most limit runes, preferring line
// breaks. An empty s yields a single placeholder chunk.
func splitText(s string, limit int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"…"}
	}
	var out []string
	for utf8.RuneCountInString(s) > limit {
		runes := []rune(s)
		cut := limit
		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i])
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		s = strings.TrimSpace(string(runes[cut:]))
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
