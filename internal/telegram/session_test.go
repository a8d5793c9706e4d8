package telegram

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quailyquaily/pagefix/internal/config"
)

type fakeBotAPI struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sent    []tgbotapi.Chattable
	stopped bool
}

func newFakeBotAPI() *fakeBotAPI {
	return &fakeBotAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeBotAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBotAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeBotAPI) GetFile(_ tgbotapi.FileConfig) (tgbotapi.File, error) {
	return tgbotapi.File{}, nil
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeBotAPI) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeBotAPI) wasStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// updateFrom builds a document update whose file id encodes the sender, so
// fetch recordings can be attributed to a user.
func updateFrom(userID int64, fileName string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: userID},
			Chat:     &tgbotapi.Chat{ID: userID},
			Document: &tgbotapi.Document{FileID: fmt.Sprintf("file-%d", userID), FileName: fileName},
		},
	}
}

type sessionFixture struct {
	api     *fakeBotAPI
	session *Session

	mu         sync.Mutex
	fetchedIDs []string
	fetched    chan string
}

func newSessionFixture(authorized int64) *sessionFixture {
	f := &sessionFixture{
		api:     newFakeBotAPI(),
		fetched: make(chan string, 16),
	}

	h := &Handler{
		fetch: func(_ context.Context, fileID, _ string) (string, func(), error) {
			f.mu.Lock()
			f.fetchedIDs = append(f.fetchedIDs, fileID)
			f.mu.Unlock()
			f.fetched <- fileID
			return "in.pdf", func() {}, nil
		},
		substitute: func(context.Context, string, []config.Rule) (string, func(), error) {
			return "out.pdf", func() {}, nil
		},
		rules: func() ([]config.Rule, error) { return nil, nil },
		send:  apiSender{api: f.api},
		log:   discardLogger(),
	}

	cfg := Config{
		Authorize:      func(id int64) bool { return id == authorized },
		PollTimeout:    time.Second,
		MaxConcurrency: 1,
	}
	f.session = newSession(f.api, cfg, h, discardLogger())
	return f
}

func TestRunDropsUnauthorizedUpdates(t *testing.T) {
	f := newSessionFixture(42)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.session.Run(ctx) }()

	f.api.updates <- updateFrom(99, "report.pdf")
	f.api.updates <- updateFrom(42, "report.pdf")

	select {
	case <-f.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("authorized update was not processed")
	}

	cancel()
	require.NoError(t, <-done)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.fetchedIDs, 1, "only the authorized update reaches the pipeline")
	assert.Equal(t, "file-42", f.fetchedIDs[0])
}

func TestRunProcessesAuthorizedDocument(t *testing.T) {
	f := newSessionFixture(42)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.session.Run(ctx) }()

	f.api.updates <- updateFrom(42, "report.pdf")

	select {
	case <-f.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("document was not processed")
	}

	require.Eventually(t, func() bool { return f.api.sentCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	f.api.mu.Lock()
	_, isDoc := f.api.sent[0].(tgbotapi.DocumentConfig)
	f.api.mu.Unlock()
	assert.True(t, isDoc, "reply is a document send")

	cancel()
	require.NoError(t, <-done)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newSessionFixture(42)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.session.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	assert.True(t, f.api.wasStopped())
}

func TestRunSkipsNonMessageUpdates(t *testing.T) {
	f := newSessionFixture(42)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.session.Run(ctx) }()

	f.api.updates <- tgbotapi.Update{}
	f.api.updates <- updateFrom(42, "report.pdf")

	select {
	case <-f.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("document after empty update was not processed")
	}

	cancel()
	require.NoError(t, <-done)
}
