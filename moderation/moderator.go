package moderation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/ytmod/chat"
	"github.com/onnwee/ytmod/telemetry"
)

// DefaultReason is posted in place of a deleted message.
const DefaultReason = "VOLUNTARY EXILE"

// Outcomes recorded for each handled message.
const (
	OutcomeNone       = "none"
	OutcomeDeleted    = "deleted"
	OutcomePostFailed = "post_failed"
)

// Classifier scores message text.
type Classifier interface {
	Classify(ctx context.Context, text string) (bool, error)
}

// Actor removes a violating message.
type Actor interface {
	ActOnViolation(ctx context.Context, session chat.Session, messageID, reason string) error
}

// Decision is the audit record of one handled message.
type Decision struct {
	LiveChatID string
	MessageID  string
	AuthorID   string
	AuthorName string
	Text       string
	SentAt     time.Time
	Toxic      bool
	Outcome    string
	Error      string
}

// AuditRecorder persists decisions.
type AuditRecorder interface {
	RecordDecision(ctx context.Context, d Decision) error
}

// Moderator is the per-message handler: classify, act on toxic messages, then
// print and record the decision.
type Moderator struct {
	Session    chat.Session
	Classifier Classifier
	Actor      Actor
	Reason     string        // defaults to DefaultReason
	Out        io.Writer     // audit lines; defaults to os.Stdout
	Audit      AuditRecorder // optional
}

// Handle implements chat.Handler. Only a classifier failure is returned; a
// failed action is logged and recorded since the verdict itself is known.
func (m *Moderator) Handle(ctx context.Context, msg chat.Message) error {
	ctx, span := telemetry.StartSpan(ctx, "moderation", "handle-message",
		attribute.String("message_id", msg.ID))
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "moderator"),
		slog.String("message_id", msg.ID))

	telemetry.IncMessagesProcessed()

	var toxic bool
	var err error
	telemetry.TimeFunc(telemetry.ClassifyDuration, func() {
		toxic, err = m.Classifier.Classify(ctx, msg.Text)
	})
	if err != nil {
		telemetry.IncClassifierErrors()
		telemetry.RecordError(span, err)
		return fmt.Errorf("classify message %s: %w", msg.ID, err)
	}
	span.SetAttributes(attribute.Bool("toxic", toxic))

	d := Decision{
		LiveChatID: m.Session.LiveChatID,
		MessageID:  msg.ID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Text:       msg.Text,
		SentAt:     msg.SentAt,
		Toxic:      toxic,
		Outcome:    OutcomeNone,
	}
	if toxic {
		telemetry.IncMessagesToxic()
		var actErr error
		telemetry.TimeFunc(telemetry.ActionDuration, func() {
			actErr = m.Actor.ActOnViolation(ctx, m.Session, msg.ID, m.reason())
		})
		d.Outcome = m.outcome(log, actErr)
		if actErr != nil {
			d.Error = actErr.Error()
		}
		telemetry.RecordAction(d.Outcome)
	}

	m.print(msg, toxic)
	if m.Audit != nil {
		if err := m.Audit.RecordDecision(ctx, d); err != nil {
			log.Warn("failed to record moderation decision", slog.Any("err", err))
		}
	}
	telemetry.SetSpanSuccess(span)
	return nil
}

func (m *Moderator) reason() string {
	if m.Reason == "" {
		return DefaultReason
	}
	return m.Reason
}

func (m *Moderator) outcome(log *slog.Logger, err error) string {
	if err == nil {
		log.Info("deleted toxic message")
		return OutcomeDeleted
	}
	var ae *ActionError
	if !errors.As(err, &ae) {
		log.Error("failed to delete message", slog.Any("err", err))
		return ActionUnknown.String()
	}
	if ae.Stage == StagePost {
		log.Error("deleted message but failed to post notice", slog.Any("err", err))
		return OutcomePostFailed
	}
	switch ae.Kind {
	case ActionNotAuthorized:
		log.Error("not authorized to delete message", slog.Any("err", err))
	case ActionNotFound:
		log.Warn("message to delete was not found", slog.Any("err", err))
	default:
		log.Error("failed to delete message", slog.Any("err", err))
	}
	return ae.Kind.String()
}

func (m *Moderator) print(msg chat.Message, toxic bool) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, "===== Message by %s at %s: %s (toxic: %t)\n",
		msg.AuthorName, msg.SentAt.Format(time.RFC3339), msg.Text, toxic)
}
