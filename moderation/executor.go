package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onnwee/ytmod/chat"
)

// ActionKind classifies why a moderation action failed.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionNotAuthorized
	ActionNotFound
)

// String returns the metric/log label for the kind.
func (k ActionKind) String() string {
	switch k {
	case ActionNotAuthorized:
		return "not_authorized"
	case ActionNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Action stages.
const (
	StageDelete = "delete"
	StagePost   = "post"
)

// ActionError reports a failed delete or a failed notice post.
type ActionError struct {
	Stage     string
	Kind      ActionKind
	MessageID string
	Err       error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s message %s (%s): %v", e.Stage, e.MessageID, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Transient reports whether repeating the action could succeed.
func (e *ActionError) Transient() bool {
	return e.Kind == ActionUnknown
}

// ChatActions is the part of chat.Provider that changes the chat.
type ChatActions interface {
	DeleteMessage(ctx context.Context, messageID string) error
	PostMessage(ctx context.Context, liveChatID, text string) (string, error)
}

// Executor deletes violating messages and announces the removal.
type Executor struct {
	actions ChatActions
}

// NewExecutor creates an Executor using actions.
func NewExecutor(actions ChatActions) *Executor {
	return &Executor{actions: actions}
}

// ActOnViolation deletes messageID and, only if that succeeded, posts reason
// into the session's chat.
func (e *Executor) ActOnViolation(ctx context.Context, session chat.Session, messageID, reason string) error {
	if err := e.actions.DeleteMessage(ctx, messageID); err != nil {
		return &ActionError{Stage: StageDelete, Kind: deleteKind(err), MessageID: messageID, Err: err}
	}
	postedID, err := e.actions.PostMessage(ctx, session.LiveChatID, reason)
	if err != nil {
		return &ActionError{Stage: StagePost, Kind: ActionUnknown, MessageID: messageID, Err: err}
	}
	slog.Debug("posted moderation notice",
		slog.String("component", "moderation_executor"),
		slog.String("deleted_id", messageID),
		slog.String("notice_id", postedID))
	return nil
}

func deleteKind(err error) ActionKind {
	switch {
	case errors.Is(err, chat.ErrNotAuthorized):
		return ActionNotAuthorized
	case errors.Is(err, chat.ErrNotFound):
		return ActionNotFound
	default:
		return ActionUnknown
	}
}
