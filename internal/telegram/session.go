// Package telegram owns the long-poll Bot API session: it authenticates,
// filters inbound updates through the authorization predicate, and runs the
// per-document pipeline on a bounded worker pool.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/quailyquaily/pagefix/internal/config"
	"github.com/quailyquaily/pagefix/internal/dispatch"
	"github.com/quailyquaily/pagefix/internal/pdfsub"
)

// botAPI is the slice of the Bot API client the session uses; the real
// client satisfies it, tests substitute their own.
type botAPI interface {
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config configures a Session. Authorize decides whether a sender may use
// the bot; a nil predicate denies everything.
type Config struct {
	Token          string
	Authorize      func(userID int64) bool
	PollTimeout    time.Duration
	MaxConcurrency int
}

// Session is the long-lived connection to the Bot API.
type Session struct {
	api       botAPI
	cfg       Config
	handler   *Handler
	log       *slog.Logger
	botName   string
	authorize func(userID int64) bool
}

// New authenticates against the Bot API and assembles the full pipeline:
// fetcher, substitution engine, handler, session.
func New(cfg Config, loader *config.Loader, engine *pdfsub.Engine, logger *slog.Logger) (*Session, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	fetcher := NewFetcher(bot, cfg.Token, logger)
	handler := &Handler{
		fetch:      fetcher.Fetch,
		substitute: engine.Substitute,
		rules:      loader.Rules,
		send:       apiSender{api: bot},
		log:        logger,
	}

	s := newSession(bot, cfg, handler, logger)
	s.botName = bot.Self.UserName
	return s, nil
}

func newSession(api botAPI, cfg Config, h *Handler, logger *slog.Logger) *Session {
	authorize := cfg.Authorize
	if authorize == nil {
		// Fail closed.
		authorize = func(int64) bool { return false }
	}
	return &Session{
		api:       api,
		cfg:       cfg,
		handler:   h,
		log:       logger,
		authorize: authorize,
	}
}

// Run blocks in the receive loop until ctx is canceled. Poll errors are
// handled inside the client and never surface here; one document's failure
// never stops the loop.
func (s *Session) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(s.cfg.PollTimeout / time.Second)
	updates := s.api.GetUpdatesChan(u)
	defer s.api.StopReceivingUpdates()

	s.log.Info("telegram_start",
		"bot", s.botName,
		"poll_timeout", s.cfg.PollTimeout.String(),
		"max_concurrency", s.cfg.MaxConcurrency,
	)

	pool := dispatch.Start(ctx, dispatch.Options[*tgbotapi.Message]{
		Workers: s.cfg.MaxConcurrency,
		Handle:  s.handler.Handle,
	})
	defer pool.Wait()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("telegram_stop")
			return nil
		case update := <-updates:
			msg := update.Message
			if msg == nil || msg.From == nil || msg.Chat == nil {
				continue
			}
			if !s.authorize(msg.From.ID) {
				s.log.Warn("telegram_unauthorized_user",
					"user_id", msg.From.ID,
					"chat_id", msg.Chat.ID,
				)
				continue
			}
			if err := pool.Enqueue(ctx, msg); err != nil {
				continue
			}
			s.log.Debug("telegram_message_enqueued", "chat_id", msg.Chat.ID)
		}
	}
}

// apiSender posts replies through the Bot API.
type apiSender struct {
	api botAPI
}

func (s apiSender) SendDocument(chatID int64, path string) error {
	_, err := s.api.Send(tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path)))
	return err
}

func (s apiSender) SendText(chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
