package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/dsa-tutor/backend/internal/config"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
)

// Service relays tutor conversations to the configured chat model.
type Service struct {
	chatModel model.BaseChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	tokens    *TokenCounter
}

// NewService creates the chat model described by cfg and wires the chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg)
}

// NewServiceWithModel wires the chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, cfg config.AIConfig) (*Service, error) {
	// The instruction goes after the replayed history as the newest user turn.
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{instruction}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	tokens, err := NewTokenCounter()
	if err != nil {
		log.Printf("[ai] token counter unavailable: %v", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
		tokens:    tokens,
	}, nil
}

// StreamingEnabled 指示是否开启流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// GenerateResponse returns the whole reply at once.
func (s *Service) GenerateResponse(ctx context.Context, messages []chat.Message, instruction string) (*schema.Message, error) {
	input := s.buildChainInput(messages, instruction)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated response, length=%d", len(response.Content))
	return response, nil
}

// StreamResponse opens a streaming completion for the conversation.
func (s *Service) StreamResponse(ctx context.Context, messages []chat.Message, instruction string) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	input := s.buildChainInput(messages, instruction)

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}

	return stream, nil
}

// Reply opens the answer for one turn. With streaming disabled the whole
// response is generated first and replayed as a single chunk.
func (s *Service) Reply(ctx context.Context, messages []chat.Message, instruction string) (*schema.StreamReader[*schema.Message], error) {
	if s.StreamingEnabled() {
		return s.StreamResponse(ctx, messages, instruction)
	}

	response, err := s.GenerateResponse(ctx, messages, instruction)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{response}), nil
}

func (s *Service) buildChainInput(messages []chat.Message, instruction string) map[string]any {
	history := BuildHistory(messages)
	if s.tokens != nil {
		log.Printf("[ai] prompt tokens: history=%d instruction=%d", s.tokens.CountMessages(history), s.tokens.Count(instruction))
	}

	return map[string]any{
		"history":     history,
		"instruction": instruction,
	}
}

// BuildHistory maps client turns to model messages, preserving order.
func BuildHistory(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == chat.RoleUser {
			history = append(history, schema.UserMessage(msg.Content))
			continue
		}
		history = append(history, schema.AssistantMessage(msg.Content, nil))
	}

	return history
}
