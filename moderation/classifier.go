// Package moderation decides what happens to each chat message: it scores the
// text with an external toxicity service and, for toxic messages, deletes the
// message and posts a notice in its place.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ClassifierError is returned when a verdict could not be obtained.
type ClassifierError struct {
	StatusCode int // 0 when no response was received
	Err        error
	transport  bool
}

func (e *ClassifierError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("toxicity classifier: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("toxicity classifier: %v", e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// Transient reports whether the failure came from the network or a server
// error rather than from a malformed response.
func (e *ClassifierError) Transient() bool {
	return e.transport || e.StatusCode >= 500
}

// ToxicityEndpoint builds the classifier base URL from host and port.
func ToxicityEndpoint(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// ToxicityClassifier calls the text scoring service: GET /text?q=<text>
// answering {"toxic": 0|1, ...}.
type ToxicityClassifier struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *ToxicityClassifier) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Classify returns true when the service scores text as toxic. Each call is
// independent; nothing is cached or retried.
func (c *ToxicityClassifier) Classify(ctx context.Context, text string) (bool, error) {
	u := strings.TrimRight(c.BaseURL, "/") + "/text?" + url.Values{"q": {text}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, &ClassifierError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return false, &ClassifierError{Err: err, transport: true}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, &ClassifierError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(b)))}
	}
	var body struct {
		Toxic *int64 `json:"toxic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, &ClassifierError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.Toxic == nil {
		return false, &ClassifierError{StatusCode: resp.StatusCode, Err: fmt.Errorf("response has no toxic field")}
	}
	return *body.Toxic == 1, nil
}
