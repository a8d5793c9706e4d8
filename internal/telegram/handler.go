package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/quailyquaily/pagefix/internal/config"
	"github.com/quailyquaily/pagefix/internal/pdfsub"
)

// FetchFunc retrieves one inbound document into a scratch path.
type FetchFunc func(ctx context.Context, fileID, fileName string) (string, func(), error)

// SubstituteFunc transforms a downloaded document into its reply artifact.
type SubstituteFunc func(ctx context.Context, inputPath string, rules []config.Rule) (string, func(), error)

// RulesFunc returns the current replacement rules, re-read per document.
type RulesFunc func() ([]config.Rule, error)

// Sender posts replies back to a chat.
type Sender interface {
	SendDocument(chatID int64, path string) error
	SendText(chatID int64, text string) error
}

// Handler orchestrates one inbound message: attachment filter, fetch,
// substitution, reply. Failures after the filter are answered with a short
// failure message so the sender is never left without feedback.
type Handler struct {
	fetch      FetchFunc
	substitute SubstituteFunc
	rules      RulesFunc
	send       Sender
	log        *slog.Logger
}

// Handle processes one authorized message. Messages without a document, or
// with a filename not ending in the exact suffix ".pdf", are ignored
// without a reply.
func (h *Handler) Handle(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	if doc == nil || !strings.HasSuffix(doc.FileName, ".pdf") {
		return
	}

	log := h.log.With(
		"job_id", uuid.NewString(),
		"chat_id", msg.Chat.ID,
		"file_name", doc.FileName,
	)
	log.Info("document_received")

	if err := h.process(ctx, log, msg.Chat.ID, doc); err != nil {
		log.Error("document_failed", "error", err.Error())
		if sendErr := h.send.SendText(msg.Chat.ID, failureReply(err)); sendErr != nil {
			log.Warn("telegram_send_error", "error", sendErr.Error())
		}
	}
}

func (h *Handler) process(ctx context.Context, log *slog.Logger, chatID int64, doc *tgbotapi.Document) error {
	rules, err := h.rules()
	if err != nil {
		return err
	}

	inPath, releaseDownload, err := h.fetch(ctx, doc.FileID, doc.FileName)
	if err != nil {
		return err
	}
	defer releaseDownload()
	log.Info("document_downloaded")

	outPath, releaseArtifact, err := h.substitute(ctx, inPath, rules)
	if err != nil {
		return err
	}
	defer releaseArtifact()

	if err := h.send.SendDocument(chatID, outPath); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	log.Info("document_sent", "file_name", filepath.Base(outPath))
	return nil
}

// failureReply maps an error to the short user-visible reply text.
func failureReply(err error) string {
	switch {
	case errors.Is(err, config.ErrUnavailable):
		return "processing failed: rules unavailable"
	case errors.Is(err, ErrDownload):
		return "processing failed: could not download the document"
	case errors.Is(err, pdfsub.ErrPageSelection):
		return "processing failed: the document has no pages"
	case errors.Is(err, pdfsub.ErrRender):
		return "processing failed: could not rewrite the document"
	default:
		return "processing failed"
	}
}
