// Package telemetry provides Prometheus metrics, readiness bookkeeping and
// correlation-id aware logging helpers for the moderation loop.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesProcessed prometheus.Counter
	MessagesToxic     prometheus.Counter
	MessagesRejected  prometheus.Counter
	FetchFailures     prometheus.Counter
	ClassifierErrors  prometheus.Counter
	HandlerErrors     *prometheus.CounterVec // label: kind (transient|permanent|unknown)
	ModerationActions *prometheus.CounterVec // label: result

	// Histograms (seconds)
	ClassifyDuration prometheus.Observer
	ActionDuration   prometheus.Observer

	// Gauges
	CursorGauge    prometheus.Gauge
	LastFetchGauge prometheus.Gauge // unix seconds of the last successful fetch

	lastFetchUnixNano atomic.Int64
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{Name: "ytmod_messages_processed_total", Help: "Number of chat messages handed to the moderation handler"})
		MessagesToxic = promauto.NewCounter(prometheus.CounterOpts{Name: "ytmod_messages_toxic_total", Help: "Number of chat messages classified as toxic"})
		MessagesRejected = promauto.NewCounter(prometheus.CounterOpts{Name: "ytmod_messages_rejected_total", Help: "Number of chat messages dropped by validation"})
		FetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "ytmod_fetch_failures_total", Help: "Number of failed chat page fetches"})
		ClassifierErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "ytmod_classifier_errors_total", Help: "Number of failed toxicity classifications"})
		HandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{Name: "ytmod_handler_errors_total", Help: "Number of per-message handler errors by kind"}, []string{"kind"})
		ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "ytmod_moderation_actions_total", Help: "Moderation actions by result"}, []string{"result"})
		ClassifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ytmod_classify_duration_seconds", Help: "Toxicity classification latency seconds", Buckets: prometheus.DefBuckets})
		ActionDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ytmod_action_duration_seconds", Help: "Delete and notify latency seconds", Buckets: prometheus.DefBuckets})
		CursorGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "ytmod_chat_cursor", Help: "Messages consumed from the current live chat"})
		LastFetchGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "ytmod_last_fetch_timestamp_seconds", Help: "Unix time of the last successful chat fetch"})
	})
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// IncMessagesProcessed counts a message handed to the handler.
func IncMessagesProcessed() { inc(MessagesProcessed) }

// IncMessagesToxic counts a toxic verdict.
func IncMessagesToxic() { inc(MessagesToxic) }

// IncMessagesRejected counts a message dropped by validation.
func IncMessagesRejected() { inc(MessagesRejected) }

// IncFetchFailures counts a failed fetch.
func IncFetchFailures() { inc(FetchFailures) }

// IncClassifierErrors counts a failed classification.
func IncClassifierErrors() { inc(ClassifierErrors) }

// IncHandlerErrors counts a handler error of the given kind.
func IncHandlerErrors(kind string) {
	if HandlerErrors != nil {
		HandlerErrors.WithLabelValues(kind).Inc()
	}
}

// RecordAction counts a moderation action outcome (deleted, not_authorized, not_found, unknown, post_failed).
func RecordAction(result string) {
	if ModerationActions != nil {
		ModerationActions.WithLabelValues(result).Inc()
	}
}

// SetCursor records the poller cursor.
func SetCursor(n int) {
	if CursorGauge != nil {
		CursorGauge.Set(float64(n))
	}
}

// MarkFetchSuccess records the time of a successful fetch for readiness checks.
func MarkFetchSuccess(t time.Time) {
	lastFetchUnixNano.Store(t.UnixNano())
	if LastFetchGauge != nil {
		LastFetchGauge.Set(float64(t.Unix()))
	}
}

// LastFetchSuccess returns the time of the last successful fetch, or the zero time.
func LastFetchSuccess() time.Time {
	n := lastFetchUnixNano.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
