package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/aydinberk/sumchat/internal/middleware"
	"github.com/aydinberk/sumchat/internal/repo"
)

// fakeProvider returns canned chunks, optionally failing before the stream
// opens (openErr) or after the chunks are sent (midErr).
type fakeProvider struct {
	chunks    []string
	openErr   error
	midErr    error
	lastStyle string
}

func (f *fakeProvider) Complete(ctx context.Context, prompt, style string) (string, error) {
	f.lastStyle = style
	if f.openErr != nil {
		return "", f.openErr
	}
	var out string
	for _, c := range f.chunks {
		out += c
	}
	return out, nil
}

func (f *fakeProvider) Stream(ctx context.Context, prompt, style string) (<-chan string, <-chan error, error) {
	f.lastStyle = style
	if f.openErr != nil {
		return nil, nil, f.openErr
	}
	ch := make(chan string, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	errCh := make(chan error, 1)
	if f.midErr != nil {
		errCh <- f.midErr
	}
	close(errCh)
	return ch, errCh, nil
}

func askReq(t *testing.T, path string, payload map[string]string, userID int) *http.Request {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

func TestAskHandler_Summary(t *testing.T) {
	fake := &fakeProvider{chunks: []string{"a short ", "summary"}}
	h := &AskHandler{Provider: fake}

	rr := httptest.NewRecorder()
	h.Summary(rr, askReq(t, "/ask/summary", map[string]string{"prompt": "summarize this text"}, 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Response != "a short summary" {
		t.Errorf("response: got %q", out.Response)
	}
	if fake.lastStyle != "brief" {
		t.Errorf("style must default to brief, got %q", fake.lastStyle)
	}
}

func TestAskHandler_Summary_EmptyPrompt(t *testing.T) {
	h := &AskHandler{Provider: &fakeProvider{}}

	rr := httptest.NewRecorder()
	h.Summary(rr, askReq(t, "/ask/summary", map[string]string{"prompt": "   "}, 1))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestAskHandler_Summary_NoIdentity(t *testing.T) {
	h := &AskHandler{Provider: &fakeProvider{}}

	rr := httptest.NewRecorder()
	h.Summary(rr, askReq(t, "/ask/summary", map[string]string{"prompt": "hello"}, 0))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestAskHandler_Summary_UpstreamFailure(t *testing.T) {
	h := &AskHandler{Provider: &fakeProvider{openErr: errors.New("backend down")}}

	rr := httptest.NewRecorder()
	h.Summary(rr, askReq(t, "/ask/summary", map[string]string{"prompt": "hello"}, 1))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want 502", rr.Code)
	}
	if bytes.Contains(rr.Body.Bytes(), []byte("backend down")) {
		t.Error("internal error detail must not reach the client")
	}
}

func TestAskHandler_SummaryStream(t *testing.T) {
	fake := &fakeProvider{chunks: []string{"chunk one ", "chunk two"}}
	h := &AskHandler{Provider: fake}

	rr := httptest.NewRecorder()
	h.SummaryStream(rr, askReq(t, "/ask/summary/stream",
		map[string]string{"prompt": "summarize", "style": "bullets"}, 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := rr.Body.String(); got != "chunk one chunk two" {
		t.Errorf("streamed body: got %q", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("content type: got %q", ct)
	}
	if !rr.Flushed {
		t.Error("stream must flush per chunk")
	}
	if fake.lastStyle != "bullets" {
		t.Errorf("style: got %q, want bullets", fake.lastStyle)
	}
}

func TestAskHandler_SummaryStream_MidStreamFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &AskHandler{
		Provider: &fakeProvider{
			chunks: []string{"partial "},
			midErr: errors.New("upstream reset"),
		},
		Transcripts: repo.NewTranscriptRepo(db),
	}

	rr := httptest.NewRecorder()
	h.SummaryStream(rr, askReq(t, "/ask/summary/stream", map[string]string{"prompt": "summarize"}, 1))

	// Headers were already sent, so the client sees 200 and a truncated body.
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := rr.Body.String(); got != "partial " {
		t.Errorf("truncated body: got %q", got)
	}

	// A partial reply is never persisted: no INSERT was expected, none may run.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAskHandler_SummaryStream_UpstreamFailure(t *testing.T) {
	h := &AskHandler{Provider: &fakeProvider{openErr: errors.New("backend down")}}

	rr := httptest.NewRecorder()
	h.SummaryStream(rr, askReq(t, "/ask/summary/stream", map[string]string{"prompt": "hello"}, 1))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want 502", rr.Code)
	}
}
