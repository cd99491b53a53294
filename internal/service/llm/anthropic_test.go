package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	anthropic "github.com/liushuangls/go-anthropic/v2"
)

func TestToAnthropicMessagesFoldsConsecutiveRoles(t *testing.T) {
	system, messages := toAnthropicMessages([]*schema.Message{
		schema.SystemMessage("be kind"),
		schema.UserMessage("How do I start?"),
		schema.UserMessage("instruction prompt"),
		schema.AssistantMessage("Think about it.", nil),
	})

	if system != "be kind" {
		t.Fatalf("expected system prompt to be lifted, got %q", system)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != anthropic.RoleUser || len(messages[0].Content) != 2 {
		t.Fatalf("expected folded user turn with two blocks, got %+v", messages[0])
	}
	if messages[1].Role != anthropic.RoleAssistant {
		t.Fatalf("expected assistant turn, got %s", messages[1].Role)
	}
}

func TestNewAnthropicModelRequiresModel(t *testing.T) {
	if _, err := NewAnthropicModel(AnthropicConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func newAnthropicServer(t *testing.T, handler http.HandlerFunc) *AnthropicModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m, err := NewAnthropicModel(AnthropicConfig{APIKey: "test-key", Model: "claude-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewAnthropicModel err: %v", err)
	}
	return m
}

func TestAnthropicStreamForwardsDeltas(t *testing.T) {
	m := newAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`event: message_start` + "\n" + `data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-test"}}`,
			`event: content_block_start` + "\n" + `data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Think "}}`,
			`event: content_block_delta` + "\n" + `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"in pairs."}}`,
			`event: content_block_stop` + "\n" + `data: {"type":"content_block_stop","index":0}`,
			`event: message_stop` + "\n" + `data: {"type":"message_stop"}`,
		}
		for _, event := range events {
			fmt.Fprintf(w, "%s\n\n", event)
		}
	})

	stream, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	defer stream.Close()

	var got strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv err: %v", err)
		}
		got.WriteString(chunk.Content)
	}
	if got.String() != "Think in pairs." {
		t.Fatalf("expected concatenated deltas, got %q", got.String())
	}
}

func TestAnthropicStreamRejectedRequestFailsOnOpen(t *testing.T) {
	m := newAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	stream, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err == nil {
		stream.Close()
		t.Fatal("expected 401 to surface from Stream")
	}
	if !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}
