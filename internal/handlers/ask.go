package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aydinberk/sumchat/internal/completion"
	"github.com/aydinberk/sumchat/internal/metrics"
	"github.com/aydinberk/sumchat/internal/middleware"
	"github.com/aydinberk/sumchat/internal/repo"
)

// ==========================
// Ask Handler
// ==========================
// AskHandler relays summary requests to the completion backend. Both endpoints
// sit behind the session guard, so an identity is always present in context.
type AskHandler struct {
	Provider    completion.Provider
	Transcripts *repo.TranscriptRepo
}

type askRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

func (h *AskHandler) decode(w http.ResponseWriter, r *http.Request) (askRequest, int, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return askRequest{}, 0, false
	}

	var input askRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return askRequest{}, 0, false
	}

	input.Prompt = strings.TrimSpace(input.Prompt)
	if input.Prompt == "" {
		JSONValidationError(w, "validation failed",
			map[string]string{"prompt": "must not be empty"}, http.StatusBadRequest)
		return askRequest{}, 0, false
	}
	if input.Style == "" {
		input.Style = completion.DefaultStyle
	}

	return input, userID, true
}

// ==========================
// Summary (buffered)
// ==========================
func (h *AskHandler) Summary(w http.ResponseWriter, r *http.Request) {
	input, userID, ok := h.decode(w, r)
	if !ok {
		return
	}

	start := time.Now()
	reply, err := h.Provider.Complete(r.Context(), input.Prompt, input.Style)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordUpstream("error", duration.Seconds())
		slog.Error("completion failed", "user_id", userID, "err", err)
		JSONError(w, "completion backend unavailable", http.StatusBadGateway)
		return
	}
	metrics.RecordUpstream("ok", duration.Seconds())
	slog.Info("completion",
		"user_id", userID,
		"style", input.Style,
		"duration_ms", duration.Milliseconds(),
		"reply_chars", len(reply))

	h.saveTranscript(r, userID, input, reply)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response": reply,
		"meta": map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"chars":       len(reply),
		},
	})
}

// ==========================
// SummaryStream (chunked)
// ==========================
// SummaryStream forwards upstream fragments as they arrive, flushing after
// each one so the first byte reaches the client before the reply is complete.
// If the upstream dies mid-stream the response is simply truncated; clients
// treat a connection closed without io.EOF semantics on their side as an error.
func (h *AskHandler) SummaryStream(w http.ResponseWriter, r *http.Request) {
	input, userID, ok := h.decode(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	// The request context is cancelled when the client disconnects, which
	// stops the upstream relay and releases its connection.
	ctx := r.Context()

	start := time.Now()
	chunks, streamErr, err := h.Provider.Stream(ctx, input.Prompt, input.Style)
	if err != nil {
		metrics.RecordUpstream("error", time.Since(start).Seconds())
		slog.Error("completion stream failed to open", "user_id", userID, "err", err)
		JSONError(w, "completion backend unavailable", http.StatusBadGateway)
		return
	}

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var full strings.Builder
	for chunk := range chunks {
		if _, err := w.Write([]byte(chunk)); err != nil {
			// Client went away; the cancelled context tears down upstream.
			slog.Info("stream client disconnected", "user_id", userID)
			return
		}
		full.WriteString(chunk)
		flusher.Flush()
	}

	duration := time.Since(start)

	// A truncated reply is an upstream failure even though the chunk channel
	// drained normally. It is not history: partial replies are never saved.
	if err := <-streamErr; err != nil {
		metrics.RecordUpstream("error", duration.Seconds())
		slog.Error("completion stream failed mid-reply",
			"user_id", userID,
			"sent_chars", full.Len(),
			"err", err)
		return
	}

	metrics.RecordUpstream("ok", duration.Seconds())
	slog.Info("completion stream",
		"user_id", userID,
		"style", input.Style,
		"duration_ms", duration.Milliseconds(),
		"reply_chars", full.Len())

	if full.Len() > 0 {
		h.saveTranscript(r, userID, input, full.String())
	}
}

// saveTranscript keeps the exchange for the user's history. Best-effort: a
// failed write is logged, never surfaced.
func (h *AskHandler) saveTranscript(r *http.Request, userID int, input askRequest, reply string) {
	if h.Transcripts == nil {
		return
	}
	if _, err := h.Transcripts.Save(r.Context(), userID, input.Prompt, reply, input.Style); err != nil {
		slog.Warn("save transcript failed", "user_id", userID, "err", err)
	}
}
