// Package telegram adapts Telegram bot updates to desk events and renders
// views back as messages with inline keyboards.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ashureev/influencer-desk/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers = 8
	pollTimeout    = 60
)

// Sender is the subset of *tgbotapi.BotAPI used to talk back to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Controller turns events into views.
type Controller interface {
	Handle(ctx context.Context, ev domain.Event) (domain.View, error)
}

type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Texts are the transport captions taken from the prompt catalog.
type Texts struct {
	ContactButton string // reply keyboard button that shares the phone
	Failure       string // sent when an update could not be processed
}

// Bot long-polls Telegram and feeds updates to the controller.
type Bot struct {
	api     Sender
	updates updateSource
	ctrl    Controller
	policy  *bluemonday.Policy
	texts   Texts
	workers int
	logger  *slog.Logger
}

// New authorizes against the Bot API with token.
func New(token string, ctrl Controller, texts Texts, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b := NewWithSender(api, ctrl, texts, logger)
	b.updates = api
	b.logger.Info("Telegram bot authorized", "username", api.Self.UserName)
	return b, nil
}

// NewWithSender builds a bot around an existing sender. Run needs an
// update source, so bots built this way are driven through Serve.
func NewWithSender(api Sender, ctrl Controller, texts Texts, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:     api,
		ctrl:    ctrl,
		policy:  bluemonday.StrictPolicy(),
		texts:   texts,
		workers: defaultWorkers,
		logger:  logger,
	}
}

// Run long-polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if b.updates == nil {
		return errors.New("telegram: bot has no update source")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.updates.GetUpdatesChan(u)
	defer b.updates.StopReceivingUpdates()

	return b.Serve(ctx, updates)
}

// Serve dispatches updates to a fixed set of workers. Updates of one user
// always land on the same worker, so their order is preserved.
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update) error {
	queues := make([]chan tgbotapi.Update, b.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, 16)
		q := queues[i]
		g.Go(func() error {
			for u := range q {
				b.HandleUpdate(gctx, u)
			}
			return nil
		})
	}

	defer func() {
		for _, q := range queues {
			close(q)
		}
		if err := g.Wait(); err != nil {
			b.logger.Warn("Telegram worker stopped with error", "error", err)
		}
		b.logger.Info("Telegram dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			q := queues[workerFor(u, len(queues))]
			select {
			case q <- u:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func workerFor(u tgbotapi.Update, n int) int {
	if from := u.SentFrom(); from != nil {
		return int(uint64(from.ID) % uint64(n))
	}
	return 0
}

// HandleUpdate processes one update end to end. A panic while handling the
// event is logged and answered with the failure text; the worker survives.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	in, ok := eventFromUpdate(u)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Telegram event panicked",
				"user_id", in.event.UserID,
				"kind", in.event.Kind,
				"panic", r,
				"stack", string(debug.Stack()))
			b.sendFailure(in.chatID, in.event.UserID)
		}
	}()

	if in.callbackID != "" {
		if _, err := b.api.Request(tgbotapi.NewCallback(in.callbackID, "")); err != nil {
			b.logger.Debug("Failed to answer callback", "error", err)
		}
	}

	view, err := b.ctrl.Handle(ctx, in.event)
	if err != nil {
		b.logger.Error("Telegram event failed", "user_id", in.event.UserID, "kind", in.event.Kind, "error", err)
		return
	}

	for _, msg := range b.render(in.chatID, view) {
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Warn("Telegram send failed", "user_id", in.event.UserID, "error", err)
		}
	}
}

func (b *Bot) sendFailure(chatID int64, userID string) {
	if b.texts.Failure == "" {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, b.texts.Failure)); err != nil {
		b.logger.Warn("Telegram failure notice not sent", "user_id", userID, "error", err)
	}
}
