package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

type fakeController struct {
	mu     sync.Mutex
	events []domain.Event
	view   domain.View
	err    error
}

func (f *fakeController) Handle(_ context.Context, ev domain.Event) (domain.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.view, f.err
}

func (f *fakeController) received() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

func newTestBot(ctrl Controller) (*Bot, *fakeSender) {
	sender := &fakeSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithSender(sender, ctrl, Texts{ContactButton: "Share phone", Failure: "Something broke"}, logger), sender
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		name, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   domain.Event
		ok     bool
	}{
		{
			name:   "text",
			update: textUpdate(7, "Almaty, Astana"),
			want:   domain.Event{UserID: "tg:7", Kind: domain.EventText, Payload: "Almaty, Astana"},
			ok:     true,
		},
		{
			name:   "start with invite token",
			update: textUpdate(7, "/start invite-1"),
			want:   domain.Event{UserID: "tg:7", Kind: domain.EventStart, Payload: "invite-1"},
			ok:     true,
		},
		{
			name:   "bare start",
			update: textUpdate(7, "/start"),
			want:   domain.Event{UserID: "tg:7", Kind: domain.EventStart},
			ok:     true,
		},
		{
			name:   "restart command",
			update: textUpdate(7, "/restart"),
			want:   domain.Event{UserID: "tg:7", Kind: domain.EventButton, Payload: "restart"},
			ok:     true,
		},
		{
			name: "own contact",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From:    &tgbotapi.User{ID: 7},
				Chat:    &tgbotapi.Chat{ID: 7},
				Contact: &tgbotapi.Contact{PhoneNumber: "+77010001122", UserID: 7},
			}},
			want: domain.Event{UserID: "tg:7", Kind: domain.EventContact, Payload: "+77010001122"},
			ok:   true,
		},
		{
			name: "someone else's contact",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				From:    &tgbotapi.User{ID: 7},
				Chat:    &tgbotapi.Chat{ID: 7},
				Contact: &tgbotapi.Contact{PhoneNumber: "+77019999999", UserID: 8},
			}},
		},
		{
			name: "callback",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "cb-1",
				From:    &tgbotapi.User{ID: 7},
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
				Data:    "cities:pick:0",
			}},
			want: domain.Event{UserID: "tg:7", Kind: domain.EventButton, Payload: "cities:pick:0"},
			ok:   true,
		},
		{
			name:   "sticker without text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 7}}},
		},
		{name: "empty update"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eventFromUpdate(tt.update)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.event)
				assert.Equal(t, int64(7), got.chatID)
			}
		})
	}
}

func TestRenderInlineKeyboard(t *testing.T) {
	b, _ := newTestBot(&fakeController{})

	out := b.render(42, domain.View{
		Text: "Pick <b>cities</b> & topics",
		Buttons: [][]domain.Button{
			{{Label: "Almaty", Value: "cities:pick:0"}},
			{{Label: "too long", Value: strings.Repeat("x", maxCallbackBytes+1)}},
			{{Label: "Done", Value: "cities:done"}},
		},
	})
	require.Len(t, out, 1)

	msg, ok := out[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Equal(t, "Pick cities &amp; topics", msg.Text)

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "cities:pick:0", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cities:done", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestRenderContactRequest(t *testing.T) {
	b, _ := newTestBot(&fakeController{})

	out := b.render(42, domain.View{Text: "Your phone?", RequestContact: true})
	require.Len(t, out, 1)
	msg := out[0].(tgbotapi.MessageConfig)

	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, kb.OneTimeKeyboard)
	assert.True(t, kb.Keyboard[0][0].RequestContact)
	assert.Equal(t, "Share phone", kb.Keyboard[0][0].Text)
}

func TestRenderDocument(t *testing.T) {
	b, _ := newTestBot(&fakeController{})

	out := b.render(42, domain.View{
		Text:     "Export ready",
		Document: &domain.Document{Filename: "influencers.csv", MIME: "text/csv", Data: []byte("handle\nr01\n")},
	})
	require.Len(t, out, 2)

	doc, ok := out[1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "influencers.csv", file.Name)
	assert.Equal(t, []byte("handle\nr01\n"), file.Bytes)
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"…"}, splitText("  ", 10))
	assert.Equal(t, []string{"short"}, splitText("short", 10))
	assert.Equal(t, []string{"line one", "line two"}, splitText("line one\nline two", 12))
	assert.Equal(t, []string{"абвгд", "еж"}, splitText("абвгдеж", 5))
}

func TestHandleUpdateAnswersCallbackAndSends(t *testing.T) {
	ctrl := &fakeController{view: domain.View{Text: "Next question", Buttons: [][]domain.Button{{{Label: "Skip", Value: "age:skip"}}}}}
	b, sender := newTestBot(ctrl)

	b.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-9",
		From:    &tgbotapi.User{ID: 5},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}},
		Data:    "topics:done",
	}})

	require.Len(t, sender.requests, 1)
	cb, ok := sender.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-9", cb.CallbackQueryID)

	require.Len(t, sender.messages(), 1)
	assert.Equal(t, []domain.Event{{UserID: "tg:5", Kind: domain.EventButton, Payload: "topics:done"}}, ctrl.received())
}

func TestHandleUpdateControllerErrorSendsNothing(t *testing.T) {
	b, sender := newTestBot(&fakeController{err: errors.New("store down")})
	b.HandleUpdate(context.Background(), textUpdate(5, "hello"))
	assert.Empty(t, sender.messages())
}

func TestServePreservesPerUserOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := &fakeController{view: domain.View{Text: "ok"}}
	b, sender := newTestBot(ctrl)

	updates := make(chan tgbotapi.Update)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx, updates) }()

	for _, text := range []string{"one", "two", "three"} {
		updates <- textUpdate(3, text)
	}
	updates <- textUpdate(4, "other user")
	close(updates)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the update channel closed")
	}

	var mine []string
	for _, ev := range ctrl.received() {
		if ev.UserID == "tg:3" {
			mine = append(mine, ev.Payload)
		}
	}
	assert.Equal(t, []string{"one", "two", "three"}, mine)
	assert.Len(t, sender.messages(), 4)
}

// panickyController panics on the "boom" payload and answers otherwise.
type panickyController struct {
	fakeController
}

func (p *panickyController) Handle(ctx context.Context, ev domain.Event) (domain.View, error) {
	if ev.Payload == "boom" {
		panic("nil pointer dereference")
	}
	return p.fakeController.Handle(ctx, ev)
}

func TestHandleUpdateRecoversFromPanic(t *testing.T) {
	b, sender := newTestBot(&panickyController{})

	require.NotPanics(t, func() { b.HandleUpdate(context.Background(), textUpdate(5, "boom")) })

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	msg, ok := msgs[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "Something broke", msg.Text)
	assert.Equal(t, int64(5), msg.ChatID)
}

func TestServeKeepsWorkingAfterPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := &panickyController{fakeController{view: domain.View{Text: "ok"}}}
	b, sender := newTestBot(ctrl)

	updates := make(chan tgbotapi.Update)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx, updates) }()

	updates <- textUpdate(3, "boom")
	updates <- textUpdate(3, "after")
	close(updates)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after the update channel closed")
	}

	assert.Equal(t, []domain.Event{{UserID: "tg:3", Kind: domain.EventText, Payload: "after"}}, ctrl.received())
	assert.Len(t, sender.messages(), 2)
}

func TestRunWithoutSource(t *testing.T) {
	b, _ := newTestBot(&fakeController{})
	require.Error(t, b.Run(context.Background()))
}
