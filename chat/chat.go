package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoBroadcasts is returned by SelectSession when the account owns no broadcasts.
var ErrNoBroadcasts = errors.New("no broadcasts found")

// Delete outcomes reported by Provider.DeleteMessage.
var (
	ErrNotAuthorized = errors.New("access not authorized")
	ErrNotFound      = errors.New("message not found")
)

// Provider is the set of chat platform calls the moderator relies on.
type Provider interface {
	ListOwnBroadcasts(ctx context.Context) ([]Broadcast, error)
	FetchChatPage(ctx context.Context, liveChatID string, maxResults int64) (*Page, error)
	// DeleteMessage returns ErrNotAuthorized or ErrNotFound (possibly wrapped)
	// for the known failure outcomes.
	DeleteMessage(ctx context.Context, messageID string) error
	PostMessage(ctx context.Context, liveChatID, text string) (string, error)
}

// Broadcast is a broadcast owned by the authenticated account as reported by the provider.
type Broadcast struct {
	ID          string
	Title       string
	Description string
	LiveChatID  string
}

// Page is one response of the chat messages list call.
// Messages is nil when the response carried no message list at all; an empty
// non-nil slice means the list was present but empty.
type Page struct {
	Messages              []RawMessage
	PollingIntervalMillis int64
}

// Session identifies the live chat being moderated.
type Session struct {
	BroadcastID string
	Title       string
	Description string
	LiveChatID  string
}

// WatchURL returns the public link for the broadcast.
func (s Session) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + s.BroadcastID
}

// SelectSession picks the first broadcast and validates it can be moderated.
func SelectSession(broadcasts []Broadcast) (Session, error) {
	if len(broadcasts) == 0 {
		return Session{}, ErrNoBroadcasts
	}
	b := broadcasts[0]
	if b.ID == "" {
		return Session{}, fmt.Errorf("select session: broadcast id missing")
	}
	if b.LiveChatID == "" {
		return Session{}, fmt.Errorf("select session: broadcast %s has no live chat id", b.ID)
	}
	return Session{
		BroadcastID: b.ID,
		Title:       b.Title,
		Description: b.Description,
		LiveChatID:  b.LiveChatID,
	}, nil
}

// DiscoverSession lists the account's broadcasts and selects one.
func DiscoverSession(ctx context.Context, p Provider) (Session, error) {
	broadcasts, err := p.ListOwnBroadcasts(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("list broadcasts: %w", err)
	}
	return SelectSession(broadcasts)
}

// FetchError is the one error that terminates the poll loop.
type FetchError struct {
	LiveChatID string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch chat messages for %s: %v", e.LiveChatID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports the first missing or invalid field of a RawMessage.
type ValidationError struct {
	MessageID string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	msg := "invalid chat message"
	if e.MessageID != "" {
		msg += " " + e.MessageID
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid %s: %v", msg, e.Field, e.Err)
	}
	return msg + ": missing " + e.Field
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RawMessage is a provider message before validation. Author and Snippet are
// nil when the provider omitted them.
type RawMessage struct {
	ID      string
	Author  *RawAuthor
	Snippet *RawSnippet
}

// RawAuthor is the author sub-record of a provider message.
type RawAuthor struct {
	ChannelID   string
	DisplayName string
}

// RawSnippet is the content sub-record of a provider message.
type RawSnippet struct {
	DisplayMessage string
	PublishedAt    string // RFC3339
}

// Message is a validated chat message.
type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	Text       string
	SentAt     time.Time
}

// Normalize validates raw and extracts a Message. The returned error is always
// a *ValidationError.
func Normalize(raw RawMessage) (Message, error) {
	fail := func(field string, err error) (Message, error) {
		return Message{}, &ValidationError{MessageID: raw.ID, Field: field, Err: err}
	}
	if raw.Author == nil {
		return fail("author details", nil)
	}
	if raw.Snippet == nil {
		return fail("snippet", nil)
	}
	if raw.ID == "" {
		return fail("id", nil)
	}
	if raw.Author.ChannelID == "" {
		return fail("author id", nil)
	}
	if raw.Author.DisplayName == "" {
		return fail("author name", nil)
	}
	if raw.Snippet.DisplayMessage == "" {
		return fail("display message", nil)
	}
	if raw.Snippet.PublishedAt == "" {
		return fail("published at", nil)
	}
	sentAt, err := time.Parse(time.RFC3339Nano, raw.Snippet.PublishedAt)
	if err != nil {
		return fail("published at", err)
	}
	return Message{
		ID:         raw.ID,
		AuthorID:   raw.Author.ChannelID,
		AuthorName: raw.Author.DisplayName,
		Text:       raw.Snippet.DisplayMessage,
		SentAt:     sentAt.UTC(),
	}, nil
}
