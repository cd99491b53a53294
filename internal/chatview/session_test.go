package chatview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
)

const twoSumURL = "https://leetcode.com/problems/two-sum/"

type fakeStreamer struct {
	// beforeChunks runs after the request is recorded and before any chunk.
	beforeChunks func()
	chunks       []string
	code         bool
	err          error
	requests     []chat.Request
}

func (f *fakeStreamer) Stream(_ context.Context, req chat.Request, onChunk func(string)) (bool, error) {
	f.requests = append(f.requests, req)
	if f.beforeChunks != nil {
		f.beforeChunks()
	}
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.code, f.err
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestSessionSubmitStreamsReply(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"Think ", "about hashing."}, code: true}
	var partials []string
	session := NewSession(streamer, WithClock(fixedClock), WithOnChange(func(s Snapshot) {
		if n := len(s.Messages); n > 0 && s.Messages[n-1].Role == chat.RoleAssistant {
			partials = append(partials, s.Messages[n-1].Content)
		}
	}))

	if session.State() != StateWelcome {
		t.Fatalf("expected welcome state, got %s", session.State())
	}
	session.SetURL(twoSumURL)

	if err := session.Submit(context.Background(), "  show me the code  "); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	req := streamer.requests[0]
	if !req.IsNewChat || req.PreviousURL != "" || req.LeetcodeURL != twoSumURL {
		t.Fatalf("unexpected first request %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "show me the code" {
		t.Fatalf("expected trimmed user message, got %+v", req.Messages)
	}

	msgs := session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "Think about hashing." {
		t.Fatalf("unexpected reply %q", msgs[1].Content)
	}
	if !msgs[0].IsCodeRequest {
		t.Fatal("expected user message to carry the code request flag")
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Fatalf("expected distinct message ids, got %q and %q", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].Timestamp != "2025-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %q", msgs[0].Timestamp)
	}
	if session.State() != StateActive {
		t.Fatalf("expected active state, got %s", session.State())
	}

	found := false
	for _, p := range partials {
		if p == "Think " {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected partial reply to be observed, got %v", partials)
	}

	if err := session.Submit(context.Background(), "and then?"); err != nil {
		t.Fatalf("second Submit err: %v", err)
	}
	second := streamer.requests[1]
	if second.IsNewChat || second.PreviousURL != twoSumURL {
		t.Fatalf("unexpected follow-up request %+v", second)
	}
	if len(second.Messages) != 3 || !second.Messages[0].IsCodeRequest {
		t.Fatalf("expected history to be replayed with flags, got %+v", second.Messages)
	}
}

func TestSessionRejectsInvalidURL(t *testing.T) {
	streamer := &fakeStreamer{}
	session := NewSession(streamer)
	session.SetURL("https://example.com/problems/two-sum/")

	err := session.Submit(context.Background(), "hello")
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if len(streamer.requests) != 0 {
		t.Fatal("expected no request to be sent")
	}
	msgs := session.Messages()
	if len(msgs) != 1 || msgs[0].Content != invalidURLHint || msgs[0].Role != chat.RoleAssistant {
		t.Fatalf("expected hint message, got %+v", msgs)
	}
}

func TestSessionRejectsEmptyInput(t *testing.T) {
	session := NewSession(&fakeStreamer{})
	session.SetURL(twoSumURL)

	if err := session.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if len(session.Messages()) != 0 {
		t.Fatal("expected no messages")
	}
}

func TestSessionFailureReplacesReply(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"partial"}, err: &ResponseError{Status: 500}}
	session := NewSession(streamer)
	session.SetURL(twoSumURL)

	if err := session.Submit(context.Background(), "help"); err == nil {
		t.Fatal("expected error")
	}

	msgs := session.Messages()
	if msgs[len(msgs)-1].Content != failureReply {
		t.Fatalf("expected failure reply, got %q", msgs[len(msgs)-1].Content)
	}
	if session.State() != StateActive {
		t.Fatalf("expected loading to be cleared, got %s", session.State())
	}

	streamer.err = nil
	_ = session.Submit(context.Background(), "again")
	if streamer.requests[1].PreviousURL != twoSumURL {
		t.Fatalf("expected previous url after an error response, got %q", streamer.requests[1].PreviousURL)
	}
}

func TestSessionNetworkFailureKeepsPreviousURL(t *testing.T) {
	streamer := &fakeStreamer{err: errors.New("connection refused")}
	session := NewSession(streamer)
	session.SetURL(twoSumURL)

	_ = session.Submit(context.Background(), "help")
	streamer.err = nil
	_ = session.Submit(context.Background(), "again")

	if streamer.requests[1].PreviousURL != "" {
		t.Fatalf("expected no previous url without a response, got %q", streamer.requests[1].PreviousURL)
	}
}

func TestSessionURLChangeAndReset(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"ok"}}
	session := NewSession(streamer)
	session.SetURL(twoSumURL)
	_ = session.Submit(context.Background(), "first")

	entry, _ := problem.NewMemoryCatalog(problem.Seed()).FindByID(2)
	if !session.SelectProblem(entry) {
		t.Fatal("expected catalog url to be valid")
	}
	_ = session.Submit(context.Background(), "second")

	req := streamer.requests[1]
	if req.LeetcodeURL != entry.URL || req.PreviousURL != twoSumURL {
		t.Fatalf("expected url change to be visible, got %+v", req)
	}

	session.Reset()
	if session.State() != StateWelcome {
		t.Fatalf("expected welcome after reset, got %s", session.State())
	}
	if snap := session.Snapshot(); snap.URL != "" || snap.URLValid {
		t.Fatalf("expected reset to clear the problem url, got %+v", snap)
	}
	session.SetURL(twoSumURL)
	_ = session.Submit(context.Background(), "third")
	if !streamer.requests[2].IsNewChat || streamer.requests[2].PreviousURL != "" {
		t.Fatalf("expected a fresh chat after reset, got %+v", streamer.requests[2])
	}
}

func TestSessionToggleSidebar(t *testing.T) {
	session := NewSession(&fakeStreamer{})
	if !session.ToggleSidebar() || session.ToggleSidebar() {
		t.Fatal("expected sidebar toggle to alternate")
	}
}

func TestSessionInvalidURLHintOnEmptyInput(t *testing.T) {
	session := NewSession(&fakeStreamer{})

	if err := session.Submit(context.Background(), "  "); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	msgs := session.Messages()
	if len(msgs) != 1 || msgs[0].Content != invalidURLHint {
		t.Fatalf("expected hint message, got %+v", msgs)
	}
}

func TestSessionResetWhileStreamingDropsStaleReply(t *testing.T) {
	streamer := &fakeStreamer{chunks: []string{"stale ", "reply"}, code: true}
	var session *Session
	streamer.beforeChunks = func() { session.Reset() }
	session = NewSession(streamer)
	session.SetURL(twoSumURL)

	if err := session.Submit(context.Background(), "show me code"); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	if msgs := session.Messages(); len(msgs) != 0 {
		t.Fatalf("expected stale reply to be dropped, got %+v", msgs)
	}
	if session.State() != StateWelcome {
		t.Fatalf("expected welcome state, got %s", session.State())
	}

	streamer.beforeChunks = nil
	session.SetURL(twoSumURL)
	if err := session.Submit(context.Background(), "fresh start"); err != nil {
		t.Fatalf("Submit after reset err: %v", err)
	}
	last := streamer.requests[len(streamer.requests)-1]
	if !last.IsNewChat || last.PreviousURL != "" || len(last.Messages) != 1 {
		t.Fatalf("expected a fresh chat request, got %+v", last)
	}
}
