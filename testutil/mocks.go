package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockYouTubeServer mocks the YouTube Data API endpoints used by the moderator.
// Handlers are keyed by "METHOD /path-suffix", e.g. "GET liveChat/messages".
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []*http.Request
}

// NewMockYouTubeServer creates a new mock YouTube API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Clone(r.Context()))
		m.mu.Unlock()
		for key, handler := range m.Handlers {
			method, suffix, _ := strings.Cut(key, " ")
			if r.Method == method && strings.HasSuffix(r.URL.Path, suffix) {
				handler(w, r)
				return
			}
		}
		writeError(w, http.StatusNotFound, "notFound")
	}))
	t.Cleanup(m.Close)
	return m
}

// Requests returns the requests received so far.
func (m *MockYouTubeServer) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// MockBroadcasts answers liveBroadcasts.list with the given items.
func (m *MockYouTubeServer) MockBroadcasts(items []map[string]interface{}) {
	m.Handlers["GET liveBroadcasts"] = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"items": items})
	}
}

// MockChatPages answers successive liveChatMessages.list calls with pages in
// order, repeating the last one. A page of nil items omits the items field.
func (m *MockYouTubeServer) MockChatPages(pollingIntervalMillis int64, pages ...[]map[string]interface{}) {
	var mu sync.Mutex
	call := 0
	m.Handlers["GET liveChat/messages"] = func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := call
		if i >= len(pages) {
			i = len(pages) - 1
		}
		call++
		mu.Unlock()
		body := map[string]interface{}{"pollingIntervalMillis": pollingIntervalMillis}
		if pages[i] != nil {
			body["items"] = pages[i]
		}
		writeJSON(w, body)
	}
}

// MockDelete answers liveChatMessages.delete with status (204 for success).
func (m *MockYouTubeServer) MockDelete(status int) {
	m.Handlers["DELETE liveChat/messages"] = func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		writeError(w, status, http.StatusText(status))
	}
}

// MockInsert answers liveChatMessages.insert with a message carrying id.
func (m *MockYouTubeServer) MockInsert(id string) {
	m.Handlers["POST liveChat/messages"] = func(w http.ResponseWriter, r *http.Request) {
		var in map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&in) //nolint:errcheck // echo best effort
		in["id"] = id
		writeJSON(w, in)
	}
}

// MockChatMessage builds a liveChatMessage resource.
func MockChatMessage(id, authorID, authorName, text, publishedAt string) map[string]interface{} {
	return map[string]interface{}{
		"id": id,
		"authorDetails": map[string]interface{}{
			"channelId":   authorID,
			"displayName": authorName,
		},
		"snippet": map[string]interface{}{
			"displayMessage": text,
			"publishedAt":    publishedAt,
		},
	}
}

// NewMockToxicServer serves GET /text?q=... and scores a text as toxic when
// isToxic returns true.
func NewMockToxicServer(t *testing.T, isToxic func(text string) bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		toxic := 0
		if isToxic(r.URL.Query().Get("q")) {
			toxic = 1
		}
		writeJSON(w, map[string]interface{}{"toxic": toxic, "score": 0.5})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // test mock response
		"error": map[string]interface{}{
			"code":    status,
			"message": reason,
			"errors":  []map[string]string{{"reason": reason}},
		},
	})
}
