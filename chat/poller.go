package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/ytmod/telemetry"
)

// Handler processes one validated message. Returned errors are logged by the
// Poller and never stop the loop.
type Handler func(ctx context.Context, msg Message) error

// Option configures a Poller.
type Option func(*Poller)

// WithFixedInterval makes the Poller wait d between fetches regardless of the
// interval the provider advises.
func WithFixedInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d < 0 {
			d = 0
		}
		p.fixed = d
		p.hasFixed = true
	}
}

// Poller drives the fetch, drain, advance, wait cycle for one session.
type Poller struct {
	fetcher  *Fetcher
	session  Session
	handler  Handler
	fixed    time.Duration
	hasFixed bool
	cursor   int

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a Poller starting at cursor 0.
func NewPoller(fetcher *Fetcher, session Session, handler Handler, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		session: session,
		handler: handler,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Cursor returns the number of messages consumed so far.
func (p *Poller) Cursor() int { return p.cursor }

// Run polls until ctx is cancelled or a fetch fails. It returns the *FetchError
// or ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("chat poller started",
		slog.String("component", "chat_poller"),
		slog.String("live_chat_id", p.session.LiveChatID),
		slog.Bool("fixed_interval", p.hasFixed))
	for {
		wait, err := p.Cycle(ctx)
		if err != nil {
			return err
		}
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Cycle performs one fetch and drains the returned messages in order. It
// returns how long to wait before the next cycle.
func (p *Poller) Cycle(ctx context.Context) (time.Duration, error) {
	ctx = telemetry.WithCorrelation(ctx, uuid.New().String())
	ctx, span := telemetry.StartSpan(ctx, "chat", "poll-cycle",
		attribute.String("live_chat_id", p.session.LiveChatID),
		attribute.Int("cursor", p.cursor))
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "chat_poller"))

	raws, advised, err := p.fetcher.Fetch(ctx, p.session, p.cursor)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.IncFetchFailures()
		return 0, err
	}
	telemetry.MarkFetchSuccess(time.Now())

	for _, raw := range raws {
		p.drain(ctx, log, raw)
	}
	p.cursor += len(raws)
	telemetry.SetCursor(p.cursor)

	wait := advised
	if p.hasFixed {
		wait = p.fixed
	}
	log.Debug("poll cycle complete",
		slog.Int("new_messages", len(raws)),
		slog.Int("cursor", p.cursor),
		slog.Duration("wait", wait))
	span.SetAttributes(attribute.Int("new_messages", len(raws)))
	telemetry.SetSpanSuccess(span)
	return wait, nil
}

func (p *Poller) drain(ctx context.Context, log *slog.Logger, raw RawMessage) {
	msg, err := Normalize(raw)
	if err != nil {
		telemetry.IncMessagesRejected()
		log.Error("skipping invalid chat message", slog.String("message_id", raw.ID), slog.Any("err", err))
		return
	}
	if err := p.handle(ctx, msg); err != nil {
		kind := errorKind(err)
		telemetry.IncHandlerErrors(kind)
		log.Error("error while processing message",
			slog.String("message_id", msg.ID),
			slog.String("kind", kind),
			slog.Any("err", err))
	}
}

func (p *Poller) handle(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.handler(ctx, msg)
}

// transient is implemented by errors that know whether a later attempt could succeed.
type transient interface {
	Transient() bool
}

func errorKind(err error) string {
	var t transient
	if errors.As(err, &t) {
		if t.Transient() {
			return "transient"
		}
		return "permanent"
	}
	return "unknown"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
