package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicConfig configures the Anthropic messages API.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   *int
	Temperature *float32
	TopP        *float32
}

// AnthropicModel implements model.BaseChatModel on top of go-anthropic.
// The SDK streams through callbacks, which are bridged into an eino pipe.
type AnthropicModel struct {
	client *anthropic.Client
	cfg    AnthropicConfig
}

var _ model.BaseChatModel = (*AnthropicModel)(nil)

// NewAnthropicModel creates the adapter.
func NewAnthropicModel(cfg AnthropicConfig) (*AnthropicModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	var clientOpts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}

	return &AnthropicModel{
		client: anthropic.NewClient(cfg.APIKey, clientOpts...),
		cfg:    cfg,
	}, nil
}

// Generate returns the full completion in one message.
func (m *AnthropicModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	resp, err := m.client.CreateMessages(ctx, m.buildRequest(input, opts...))
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}

	var text strings.Builder
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			text.WriteString(*content.Text)
		}
	}
	return schema.AssistantMessage(text.String(), nil), nil
}

// Stream runs the blocking streaming call in the background and forwards
// text deltas as they arrive. It returns once the upstream accepted the
// request, so rejected calls fail here rather than on the first Recv.
func (m *AnthropicModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	req := anthropic.MessagesStreamRequest{MessagesRequest: m.buildRequest(input, opts...)}

	sr, sw := schema.Pipe[*schema.Message](8)

	started := make(chan struct{})
	var startOnce sync.Once
	markStarted := func() {
		startOnce.Do(func() { close(started) })
	}
	openErr := make(chan error, 1)

	var upstreamErr error
	req.OnError = func(errResp anthropic.ErrorResponse) {
		if errResp.Error != nil {
			upstreamErr = fmt.Errorf("anthropic: stream error: %s", errResp.Error.Message)
		}
	}
	req.OnMessageStart = func(anthropic.MessagesEventMessageStartData) {
		markStarted()
	}
	req.OnContentBlockDelta = func(delta anthropic.MessagesEventContentBlockDeltaData) {
		markStarted()
		if delta.Delta.Text == nil || *delta.Delta.Text == "" {
			return
		}
		sw.Send(schema.AssistantMessage(*delta.Delta.Text, nil), nil)
	}

	go func() {
		defer sw.Close()

		_, err := m.client.CreateMessagesStream(ctx, req)
		if upstreamErr != nil {
			err = upstreamErr
		} else if err != nil {
			err = fmt.Errorf("anthropic: stream: %w", err)
		}

		select {
		case <-started:
			if err != nil {
				sw.Send(nil, err)
			}
		default:
			openErr <- err
		}
	}()

	select {
	case <-started:
		return sr, nil
	case err := <-openErr:
		if err != nil {
			sr.Close()
			return nil, err
		}
		return sr, nil
	}
}

func (m *AnthropicModel) buildRequest(input []*schema.Message, opts ...model.Option) anthropic.MessagesRequest {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.cfg.Model,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
		TopP:        m.cfg.TopP,
	}, opts...)

	system, messages := toAnthropicMessages(input)

	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(m.cfg.Model),
		Messages:    messages,
		System:      system,
		MaxTokens:   defaultAnthropicMaxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = anthropic.Model(*options.Model)
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		req.MaxTokens = *options.MaxTokens
	}
	return req
}

// toAnthropicMessages lifts system messages into the system prompt and folds
// consecutive turns of the same role into one message with several text blocks.
func toAnthropicMessages(input []*schema.Message) (string, []anthropic.Message) {
	var system []string
	messages := make([]anthropic.Message, 0, len(input))

	for _, msg := range input {
		if msg == nil {
			continue
		}
		if msg.Role == schema.System {
			system = append(system, msg.Content)
			continue
		}

		role := anthropic.RoleUser
		if msg.Role == schema.Assistant {
			role = anthropic.RoleAssistant
		}

		content := anthropic.NewTextMessageContent(msg.Content)
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, content)
			continue
		}
		messages = append(messages, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{content},
		})
	}

	return strings.Join(system, "\n\n"), messages
}
