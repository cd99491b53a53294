package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	model "github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
	chat "github.com/zhouzirui/dsa-tutor/backend/internal/service/chat"
)

const (
	twoSumURL  = "https://leetcode.com/problems/two-sum/"
	islandsURL = "https://leetcode.com/problems/number-of-islands/"
)

type stubFetcher struct {
	mu      sync.Mutex
	result  problem.Details
	fetched []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) problem.Details {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	return f.result
}

func (f *stubFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func userMessages(contents ...string) []model.Message {
	out := make([]model.Message, 0, len(contents))
	for _, c := range contents {
		out = append(out, model.Message{Role: model.RoleUser, Content: c})
	}
	return out
}

func TestPlanNewChatFetchesAndUsesFullTemplate(t *testing.T) {
	fetcher := &stubFetcher{result: problem.Details{Description: "Given an array nums", Found: true}}
	svc := chat.NewService(fetcher)

	turn, err := svc.Plan(context.Background(), model.Request{
		Messages:    userMessages("How do I start?"),
		LeetcodeURL: twoSumURL,
		IsNewChat:   true,
		PreviousURL: twoSumURL,
	})
	if err != nil {
		t.Fatalf("Plan err: %v", err)
	}

	if fetcher.calls() != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetcher.calls())
	}
	if !turn.Full {
		t.Fatal("expected full template for a new chat")
	}
	if turn.Problem.Name != "Two Sum" || !turn.Problem.Found {
		t.Fatalf("unexpected problem reference %+v", turn.Problem)
	}
	if !strings.Contains(turn.Instruction, "Problem Description: Given an array nums") {
		t.Fatalf("instruction missing description:\n%s", turn.Instruction)
	}
}

func TestPlanSameURLSkipsFetch(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := chat.NewService(fetcher)

	turn, err := svc.Plan(context.Background(), model.Request{
		Messages:    userMessages("How do I start?", "And next?"),
		LeetcodeURL: twoSumURL,
		IsNewChat:   false,
		PreviousURL: twoSumURL,
	})
	if err != nil {
		t.Fatalf("Plan err: %v", err)
	}

	if fetcher.calls() != 0 {
		t.Fatalf("expected no fetch, got %d", fetcher.calls())
	}
	if turn.Full {
		t.Fatal("expected continuation template")
	}
	if !strings.Contains(turn.Instruction, "Continue assisting") {
		t.Fatalf("unexpected instruction:\n%s", turn.Instruction)
	}
}

func TestPlanEmptyPreviousURLContinues(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := chat.NewService(fetcher)

	turn, err := svc.Plan(context.Background(), model.Request{
		Messages:    userMessages("a", "b"),
		LeetcodeURL: twoSumURL,
	})
	if err != nil {
		t.Fatalf("Plan err: %v", err)
	}
	if turn.Full || fetcher.calls() != 0 {
		t.Fatalf("expected continuation without fetch, full=%v calls=%d", turn.Full, fetcher.calls())
	}
}

func TestPlanURLChangeRefetches(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := chat.NewService(fetcher)

	turn, err := svc.Plan(context.Background(), model.Request{
		Messages:    userMessages("a", "b"),
		LeetcodeURL: islandsURL,
		PreviousURL: twoSumURL,
	})
	if err != nil {
		t.Fatalf("Plan err: %v", err)
	}
	if !turn.Full || fetcher.calls() != 1 {
		t.Fatalf("expected full template with fetch, full=%v calls=%d", turn.Full, fetcher.calls())
	}
	if !strings.Contains(turn.Instruction, "Description not available") {
		t.Fatal("expected degraded description when fetch finds nothing")
	}
}

func TestPlanValidation(t *testing.T) {
	svc := chat.NewService(nil)

	cases := []struct {
		name string
		req  model.Request
		want error
	}{
		{"no messages", model.Request{LeetcodeURL: twoSumURL}, chat.ErrNoMessages},
		{"missing url", model.Request{Messages: userMessages("hi")}, chat.ErrURLRequired},
		{"invalid url", model.Request{Messages: userMessages("hi"), LeetcodeURL: "https://example.com/foo"}, chat.ErrInvalidURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Plan(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPlanFlagsCodeRequests(t *testing.T) {
	svc := chat.NewService(nil)
	messages := []model.Message{
		{Role: model.RoleUser, Content: "show me the code", IsCodeRequest: true},
		{Role: model.RoleAssistant, Content: "Let's think first."},
		{Role: model.RoleUser, Content: "just the solution please"},
	}

	turn, err := svc.Plan(context.Background(), model.Request{Messages: messages, LeetcodeURL: twoSumURL, PreviousURL: twoSumURL})
	if err != nil {
		t.Fatalf("Plan err: %v", err)
	}

	if !turn.IsCodeRequest || !turn.RequestedCodeBefore {
		t.Fatalf("expected both code flags, got now=%v before=%v", turn.IsCodeRequest, turn.RequestedCodeBefore)
	}
	if !turn.Messages[2].IsCodeRequest {
		t.Fatal("expected last message to be flagged")
	}
	if messages[2].IsCodeRequest {
		t.Fatal("Plan must not mutate the caller's messages")
	}
	if !strings.Contains(turn.Instruction, "previously requested code") {
		t.Fatal("expected code reminder in continuation prompt")
	}
}
