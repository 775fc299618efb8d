package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type recordingHandler struct {
	seen  []string
	errOn map[string]error
	panic string
}

func (h *recordingHandler) handle(ctx context.Context, msg Message) error {
	h.seen = append(h.seen, msg.ID)
	if msg.ID == h.panic {
		panic("boom")
	}
	return h.errOn[msg.ID]
}

func TestCycleAdvancesCursorMonotonically(t *testing.T) {
	p := &fakeProvider{pages: []*Page{
		{Messages: rawRange(0, 2)},
		{Messages: rawRange(0, 2)},
		{Messages: rawRange(0, 5)},
	}}
	h := &recordingHandler{}
	poller := NewPoller(NewFetcher(p), fetchSession, h.handle)

	wantCursor := []int{2, 2, 5}
	for i, want := range wantCursor {
		if _, err := poller.Cycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if poller.Cursor() != want {
			t.Errorf("cycle %d: cursor = %d, want %d", i, poller.Cursor(), want)
		}
	}
	if got := fmt.Sprint(h.seen); got != "[m0 m1 m2 m3 m4]" {
		t.Errorf("handled %s, want each message exactly once in order", got)
	}
}

func TestCycleIsolatesFailures(t *testing.T) {
	raws := rawRange(0, 5)
	raws[1].Author = nil
	p := &fakeProvider{pages: []*Page{{Messages: raws}}}
	h := &recordingHandler{errOn: map[string]error{"m2": errors.New("classifier down")}}
	poller := NewPoller(NewFetcher(p), fetchSession, h.handle)

	if _, err := poller.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if got := fmt.Sprint(h.seen); got != "[m0 m2 m3 m4]" {
		t.Errorf("handled %s", got)
	}
	if poller.Cursor() != 5 {
		t.Errorf("cursor = %d, want 5", poller.Cursor())
	}
}

func TestCycleRecoversHandlerPanic(t *testing.T) {
	p := &fakeProvider{pages: []*Page{{Messages: rawRange(0, 3)}}}
	h := &recordingHandler{panic: "m1"}
	poller := NewPoller(NewFetcher(p), fetchSession, h.handle)

	if _, err := poller.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if len(h.seen) != 3 || poller.Cursor() != 3 {
		t.Errorf("seen = %v cursor = %d", h.seen, poller.Cursor())
	}
}

func TestCycleEmptyPageReturnsInterval(t *testing.T) {
	p := &fakeProvider{pages: []*Page{{Messages: []RawMessage{}, PollingIntervalMillis: 1500}}}
	poller := NewPoller(NewFetcher(p), fetchSession, (&recordingHandler{}).handle)

	wait, err := poller.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if wait != 1500*time.Millisecond || poller.Cursor() != 0 {
		t.Errorf("wait = %v cursor = %d", wait, poller.Cursor())
	}
}

func TestCycleFixedIntervalOverridesAdvice(t *testing.T) {
	p := &fakeProvider{pages: []*Page{{Messages: []RawMessage{}, PollingIntervalMillis: 1500}}}
	tests := []struct {
		fixed time.Duration
		want  time.Duration
	}{
		{10 * time.Second, 10 * time.Second},
		{0, 0},
		{-time.Second, 0},
	}
	for _, tt := range tests {
		poller := NewPoller(NewFetcher(p), fetchSession, (&recordingHandler{}).handle, WithFixedInterval(tt.fixed))
		wait, err := poller.Cycle(context.Background())
		if err != nil {
			t.Fatalf("Cycle: %v", err)
		}
		if wait != tt.want {
			t.Errorf("fixed %v: wait = %v, want %v", tt.fixed, wait, tt.want)
		}
	}
}

func TestCycleFetchErrorLeavesCursor(t *testing.T) {
	p := &fakeProvider{
		pages:     []*Page{{Messages: rawRange(0, 2)}},
		fetchErrs: []error{nil, errors.New("network down")},
	}
	poller := NewPoller(NewFetcher(p), fetchSession, (&recordingHandler{}).handle)
	if _, err := poller.Cycle(context.Background()); err != nil {
		t.Fatalf("first Cycle: %v", err)
	}
	_, err := poller.Cycle(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if poller.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", poller.Cursor())
	}
}

func TestRunStopsOnFetchError(t *testing.T) {
	p := &fakeProvider{
		pages:     []*Page{{Messages: rawRange(0, 1), PollingIntervalMillis: 2500}},
		fetchErrs: []error{nil, nil, errors.New("gone")},
	}
	poller := NewPoller(NewFetcher(p), fetchSession, (&recordingHandler{}).handle)
	var waits []time.Duration
	poller.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	err := poller.Run(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Run error = %v, want *FetchError", err)
	}
	if p.fetches != 3 {
		t.Errorf("fetches = %d, want 3", p.fetches)
	}
	if fmt.Sprint(waits) != "[2.5s 2.5s]" {
		t.Errorf("waits = %v, want a wait after each successful cycle", waits)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p := &fakeProvider{pages: []*Page{{Messages: []RawMessage{}}}}
	poller := NewPoller(NewFetcher(p), fetchSession, (&recordingHandler{}).handle)
	ctx, cancel := context.WithCancel(context.Background())
	poller.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	if err := poller.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if p.fetches != 1 {
		t.Errorf("fetches = %d, want 1", p.fetches)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep did not return promptly")
	}
}

type kindErr struct{ transient bool }

func (e kindErr) Error() string   { return "kind" }
func (e kindErr) Transient() bool { return e.transient }

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrapped: %w", kindErr{transient: true}), "transient"},
		{kindErr{transient: false}, "permanent"},
		{errors.New("plain"), "unknown"},
		{fmt.Errorf("handler panic: %v", "boom"), "unknown"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.want {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
