// Package youtubeapi implements chat.Provider on top of the YouTube Data API
// (live broadcasts and live chat messages) and builds the authenticated
// client from an installed-app client secrets file.
package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/ytmod/chat"
)

var _ chat.Provider = (*Client)(nil)

// Client exposes the four YouTube calls the moderator needs.
type Client struct {
	svc *yt.Service
}

// NewClient wraps an existing service.
func NewClient(svc *yt.Service) *Client {
	return &Client{svc: svc}
}

// NewClientWithHTTP builds the service on an already authorized HTTP client.
func NewClientWithHTTP(ctx context.Context, hc *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return NewClient(svc), nil
}

// ListOwnBroadcasts lists the broadcasts of the authorized channel.
func (c *Client) ListOwnBroadcasts(ctx context.Context) ([]chat.Broadcast, error) {
	res, err := c.svc.LiveBroadcasts.List([]string{"id", "snippet", "contentDetails"}).
		Mine(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("broadcasts request failed: %w", err)
	}
	if res.Items == nil {
		return nil, errors.New("broadcasts response has no items")
	}
	out := make([]chat.Broadcast, 0, len(res.Items))
	for _, b := range res.Items {
		if b == nil {
			continue
		}
		cb := chat.Broadcast{ID: b.Id}
		if b.Snippet != nil {
			cb.Title = b.Snippet.Title
			cb.Description = b.Snippet.Description
			cb.LiveChatID = b.Snippet.LiveChatId
		}
		out = append(out, cb)
	}
	return out, nil
}

// FetchChatPage lists the first page of a live chat. A response without an
// items field yields a Page with nil Messages.
func (c *Client) FetchChatPage(ctx context.Context, liveChatID string, maxResults int64) (*chat.Page, error) {
	res, err := c.svc.LiveChatMessages.List(liveChatID, []string{"id", "snippet", "authorDetails"}).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("live chat messages request failed: %w", err)
	}
	page := &chat.Page{PollingIntervalMillis: res.PollingIntervalMillis}
	if res.Items != nil {
		page.Messages = make([]chat.RawMessage, 0, len(res.Items))
		for _, m := range res.Items {
			page.Messages = append(page.Messages, toRawMessage(m))
		}
	}
	return page, nil
}

func toRawMessage(m *yt.LiveChatMessage) chat.RawMessage {
	if m == nil {
		return chat.RawMessage{}
	}
	raw := chat.RawMessage{ID: m.Id}
	if m.AuthorDetails != nil {
		raw.Author = &chat.RawAuthor{
			ChannelID:   m.AuthorDetails.ChannelId,
			DisplayName: m.AuthorDetails.DisplayName,
		}
	}
	if m.Snippet != nil {
		raw.Snippet = &chat.RawSnippet{
			DisplayMessage: m.Snippet.DisplayMessage,
			PublishedAt:    m.Snippet.PublishedAt,
		}
	}
	return raw
}

// DeleteMessage deletes a chat message. 401/403 map to chat.ErrNotAuthorized
// and 404 to chat.ErrNotFound.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	err := c.svc.LiveChatMessages.Delete(messageID).Context(ctx).Do()
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", chat.ErrNotAuthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
		}
	}
	return fmt.Errorf("message delete request failed: %w", err)
}

// PostMessage inserts a text message into a live chat and returns its id.
func (c *Client) PostMessage(ctx context.Context, liveChatID, text string) (string, error) {
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: liveChatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
	res, err := c.svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("add message request failed: %w", err)
	}
	return res.Id, nil
}
