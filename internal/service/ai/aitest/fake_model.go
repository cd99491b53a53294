// Package aitest provides a scripted chat model for tests.
package aitest

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// FakeModel replays Chunks and records every input it receives.
type FakeModel struct {
	Chunks []string
	// OpenErr fails the call before any chunk is produced.
	OpenErr error
	// StreamErr is delivered after all chunks have been sent.
	StreamErr error

	mu     sync.Mutex
	inputs [][]*schema.Message
}

var _ model.BaseChatModel = (*FakeModel)(nil)

// Generate returns the concatenated chunks.
func (m *FakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.record(input)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	return schema.AssistantMessage(strings.Join(m.Chunks, ""), nil), nil
}

// Stream replays the chunks through an eino pipe.
func (m *FakeModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(input)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	sr, sw := schema.Pipe[*schema.Message](len(m.Chunks) + 1)
	go func() {
		defer sw.Close()
		for _, chunk := range m.Chunks {
			if closed := sw.Send(schema.AssistantMessage(chunk, nil), nil); closed {
				return
			}
		}
		if m.StreamErr != nil {
			sw.Send(nil, m.StreamErr)
		}
	}()
	return sr, nil
}

// Calls returns how many times the model was invoked.
func (m *FakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// LastInput returns the messages of the most recent call.
func (m *FakeModel) LastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}

func (m *FakeModel) record(input []*schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, append([]*schema.Message(nil), input...))
}
