package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/quailyquaily/pagefix/internal/scratch"
)

// ErrDownload marks a failure retrieving an inbound document from the Bot
// API file storage.
var ErrDownload = errors.New("telegram: download failed")

// Fetcher downloads inbound documents into per-call scratch directories.
type Fetcher struct {
	api    botAPI
	token  string
	client *http.Client
	log    *slog.Logger
}

// NewFetcher builds a Fetcher over an authenticated Bot API client.
func NewFetcher(api botAPI, token string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		api:    api,
		token:  token,
		client: &http.Client{},
		log:    logger,
	}
}

// Fetch resolves fileID and downloads it to <scratch>/<base(fileName)>.
// Cleanup removes the directory; on error it has already run. The download
// has no deadline of its own, cancellation comes from ctx.
func (f *Fetcher) Fetch(ctx context.Context, fileID, fileName string) (string, func(), error) {
	dir, cleanup, err := scratch.Dir("pagefix-dl-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: scratch: %v", ErrDownload, err)
	}
	done := false
	defer func() {
		if !done {
			cleanup()
		}
	}()

	file, err := f.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", nil, fmt.Errorf("%w: get file %s: %v", ErrDownload, fileID, err)
	}
	f.log.Debug("telegram_file_resolved", "file_id", fileID, "remote_path", file.FilePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(f.token), nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: build request: %v", ErrDownload, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: get %s: %v", ErrDownload, fileID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: get %s: status %d", ErrDownload, fileID, resp.StatusCode)
	}

	path := filepath.Join(dir, filepath.Base(fileName))
	if err := scratch.WriteStream(path, resp.Body); err != nil {
		return "", nil, fmt.Errorf("%w: store %s: %v", ErrDownload, fileID, err)
	}

	done = true
	return path, cleanup, nil
}
