package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/ytmod/db"
	"github.com/onnwee/ytmod/telemetry"
)

type decisionResponse struct {
	MessageID  string    `json:"message_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
	Toxic      bool      `json:"toxic"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

// HandleRecentDecisions lists the newest audit records for the moderated chat.
// Query parameters: limit (default 50) and toxic=1 to return toxic verdicts only.
func (h *Handlers) HandleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.db == nil {
		http.Error(w, "audit store disabled", http.StatusNotFound)
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	toxicOnly := r.URL.Query().Get("toxic") == "1"

	decisions, err := db.RecentDecisions(r.Context(), h.db, h.liveChatID, toxicOnly, limit)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("list moderation decisions",
			slog.String("component", "http"), slog.Any("err", err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	out := make([]decisionResponse, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, decisionResponse{
			MessageID:  d.MessageID,
			AuthorID:   d.AuthorID,
			AuthorName: d.AuthorName,
			Text:       d.Text,
			SentAt:     d.SentAt,
			Toxic:      d.Toxic,
			Outcome:    d.Outcome,
			Error:      d.Error,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
