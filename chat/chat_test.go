package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func validRaw(id string) RawMessage {
	return RawMessage{
		ID:      id,
		Author:  &RawAuthor{ChannelID: "UC-" + id, DisplayName: "viewer " + id},
		Snippet: &RawSnippet{DisplayMessage: "text " + id, PublishedAt: "2024-10-15T14:30:00.123Z"},
	}
}

func TestNormalize(t *testing.T) {
	msg, err := Normalize(validRaw("m1"))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := Message{
		ID:         "m1",
		AuthorID:   "UC-m1",
		AuthorName: "viewer m1",
		Text:       "text m1",
		SentAt:     time.Date(2024, 10, 15, 14, 30, 0, 123000000, time.UTC),
	}
	if msg != want {
		t.Errorf("Normalize = %+v, want %+v", msg, want)
	}
}

func TestNormalizeOffsetConvertedToUTC(t *testing.T) {
	raw := validRaw("m1")
	raw.Snippet.PublishedAt = "2024-10-15T16:30:00+02:00"
	msg, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if msg.SentAt.Location() != time.UTC || msg.SentAt.Hour() != 14 {
		t.Errorf("SentAt = %v, want 14:30 UTC", msg.SentAt)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *RawMessage)
		wantField string
		wantParse bool
	}{
		{"no author details", func(r *RawMessage) { r.Author = nil }, "author details", false},
		{"no snippet", func(r *RawMessage) { r.Snippet = nil }, "snippet", false},
		{"no id", func(r *RawMessage) { r.ID = "" }, "id", false},
		{"no author id", func(r *RawMessage) { r.Author.ChannelID = "" }, "author id", false},
		{"no author name", func(r *RawMessage) { r.Author.DisplayName = "" }, "author name", false},
		{"no text", func(r *RawMessage) { r.Snippet.DisplayMessage = "" }, "display message", false},
		{"no timestamp", func(r *RawMessage) { r.Snippet.PublishedAt = "" }, "published at", false},
		{"bad timestamp", func(r *RawMessage) { r.Snippet.PublishedAt = "yesterday" }, "published at", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw("m1")
			tt.mutate(&raw)
			_, err := Normalize(raw)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Normalize error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
			if (ve.Err != nil) != tt.wantParse {
				t.Errorf("Err = %v, want parse error %t", ve.Err, tt.wantParse)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	e := &ValidationError{MessageID: "m1", Field: "snippet"}
	if got := e.Error(); got != "invalid chat message m1: missing snippet" {
		t.Errorf("Error() = %q", got)
	}
	e = &ValidationError{Field: "id"}
	if got := e.Error(); got != "invalid chat message: missing id" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSelectSession(t *testing.T) {
	s, err := SelectSession([]Broadcast{
		{ID: "b1", Title: "Stream", Description: "desc", LiveChatID: "chat-1"},
		{ID: "b2", LiveChatID: "chat-2"},
	})
	if err != nil {
		t.Fatalf("SelectSession: %v", err)
	}
	if s.BroadcastID != "b1" || s.LiveChatID != "chat-1" || s.Title != "Stream" || s.Description != "desc" {
		t.Errorf("session = %+v", s)
	}
	if got := s.WatchURL(); got != "https://www.youtube.com/watch?v=b1" {
		t.Errorf("WatchURL = %q", got)
	}
}

func TestSelectSessionErrors(t *testing.T) {
	if _, err := SelectSession(nil); !errors.Is(err, ErrNoBroadcasts) {
		t.Errorf("empty list error = %v, want ErrNoBroadcasts", err)
	}
	if _, err := SelectSession([]Broadcast{{LiveChatID: "chat-1"}}); err == nil {
		t.Error("missing broadcast id should fail")
	}
	if _, err := SelectSession([]Broadcast{{ID: "b1"}}); err == nil {
		t.Error("missing live chat id should fail")
	}
}

func TestDiscoverSession(t *testing.T) {
	p := &fakeProvider{broadcasts: []Broadcast{{ID: "b1", LiveChatID: "chat-1"}}}
	s, err := DiscoverSession(context.Background(), p)
	if err != nil {
		t.Fatalf("DiscoverSession: %v", err)
	}
	if s.LiveChatID != "chat-1" {
		t.Errorf("LiveChatID = %q", s.LiveChatID)
	}

	p = &fakeProvider{listErr: ErrNotAuthorized}
	if _, err := DiscoverSession(context.Background(), p); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("error = %v, want wrapped ErrNotAuthorized", err)
	}

	p = &fakeProvider{broadcasts: []Broadcast{}}
	if _, err := DiscoverSession(context.Background(), p); !errors.Is(err, ErrNoBroadcasts) {
		t.Errorf("error = %v, want ErrNoBroadcasts", err)
	}
}
