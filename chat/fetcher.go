package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// MaxPageSize is the largest page the provider returns for one list call.
	MaxPageSize = 2000
	// DefaultPollInterval is used when the provider does not advise an interval.
	DefaultPollInterval = 2000 * time.Millisecond
)

var errMissingItems = errors.New("response has no message list")

// Fetcher returns the chat messages a session has not consumed yet.
type Fetcher struct {
	provider   Provider
	warnedFull bool
}

// NewFetcher creates a Fetcher backed by provider.
func NewFetcher(provider Provider) *Fetcher {
	return &Fetcher{provider: provider}
}

// Fetch lists the first page of the session's chat and drops the first cursor
// entries, which were delivered by earlier fetches. The returned interval is
// the provider's advice, or DefaultPollInterval when none was given.
func (f *Fetcher) Fetch(ctx context.Context, session Session, cursor int) ([]RawMessage, time.Duration, error) {
	page, err := f.provider.FetchChatPage(ctx, session.LiveChatID, MaxPageSize)
	if err != nil {
		return nil, 0, &FetchError{LiveChatID: session.LiveChatID, Err: err}
	}
	if page == nil || page.Messages == nil {
		return nil, 0, &FetchError{LiveChatID: session.LiveChatID, Err: errMissingItems}
	}

	interval := DefaultPollInterval
	if page.PollingIntervalMillis > 0 {
		interval = time.Duration(page.PollingIntervalMillis) * time.Millisecond
	}

	n := len(page.Messages)
	if n >= MaxPageSize && !f.warnedFull {
		f.warnedFull = true
		slog.Warn("chat page is full; messages beyond the first page will not be seen",
			slog.String("component", "chat_fetcher"),
			slog.String("live_chat_id", session.LiveChatID),
			slog.Int("page_size", n))
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > n {
		// The provider evicted messages from its window since the last fetch.
		slog.Warn("chat window shorter than cursor",
			slog.String("component", "chat_fetcher"),
			slog.String("live_chat_id", session.LiveChatID),
			slog.Int("cursor", cursor),
			slog.Int("page_size", n))
		return []RawMessage{}, interval, nil
	}
	return page.Messages[cursor:], interval, nil
}
