package chat

import (
	"context"
	"errors"
	"log"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
	"github.com/zhouzirui/dsa-tutor/backend/internal/service/ai"
)

var (
	ErrNoMessages  = errors.New("at least one message is required")
	ErrURLRequired = errors.New("leetcode url is required")
	ErrInvalidURL  = errors.New("invalid leetcode url")
)

// Fetcher loads a problem description. Implementations degrade instead of failing.
type Fetcher interface {
	Fetch(ctx context.Context, url string) problem.Details
}

// Turn is everything needed to answer one chat submission.
type Turn struct {
	Problem             problem.Reference
	Full                bool
	IsCodeRequest       bool
	RequestedCodeBefore bool
	Messages            []chat.Message
	Instruction         string
}

// Service plans chat turns. It holds no conversation state; every decision
// comes from the request itself.
type Service struct {
	fetcher Fetcher
}

// NewService creates a planner backed by fetcher. A nil fetcher behaves as
// if every lookup failed.
func NewService(fetcher Fetcher) *Service {
	return &Service{fetcher: fetcher}
}

// Plan validates the request, fetches the problem when the conversation is
// new or the URL changed, and renders the instruction prompt.
func (s *Service) Plan(ctx context.Context, req chat.Request) (Turn, error) {
	if len(req.Messages) == 0 {
		return Turn{}, ErrNoMessages
	}
	if req.LeetcodeURL == "" {
		return Turn{}, ErrURLRequired
	}

	name := problem.ExtractName(req.LeetcodeURL)
	if name == "" {
		return Turn{}, ErrInvalidURL
	}

	messages := append([]chat.Message(nil), req.Messages...)
	last := &messages[len(messages)-1]
	isCodeRequest := ai.IsCodeRequest(last.Content)
	requestedBefore := ai.RequestedCodeBefore(messages[:len(messages)-1])
	last.IsCodeRequest = isCodeRequest

	ref := problem.Reference{URL: req.LeetcodeURL, Name: name}
	full := req.IsNewChat || req.URLChanged()
	if full {
		details := s.fetch(ctx, req.LeetcodeURL)
		ref.Description = details.Description
		ref.Found = details.Found
	}

	instruction := ai.BuildInstruction(ai.PromptInput{
		ProblemName:         name,
		ProblemDescription:  ref.Description,
		RequestedCodeBefore: requestedBefore,
		IsCodeRequest:       isCodeRequest,
		UserMessage:         last.Content,
		Full:                full,
	})

	log.Printf("[chat] planned turn problem=%q full=%v found=%v codeRequest=%v", name, full, ref.Found, isCodeRequest)

	return Turn{
		Problem:             ref,
		Full:                full,
		IsCodeRequest:       isCodeRequest,
		RequestedCodeBefore: requestedBefore,
		Messages:            messages,
		Instruction:         instruction,
	}, nil
}

func (s *Service) fetch(ctx context.Context, url string) problem.Details {
	if s.fetcher == nil {
		return problem.NotFound()
	}
	return s.fetcher.Fetch(ctx, url)
}
