package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
	aiService "github.com/zhouzirui/dsa-tutor/backend/internal/service/ai"
	chatService "github.com/zhouzirui/dsa-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/dsa-tutor/backend/pkg/utils"
)

const (
	msgURLRequired   = "LeetCode URL is required"
	msgInvalidURL    = "Invalid LeetCode URL"
	msgProcessFailed = "Failed to process request"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc     *chatService.Service
	aiSvc       *aiService.Service
	maxDuration time.Duration
}

// New 创建聊天处理器. maxDuration <= 0 disables the request deadline.
func New(chatSvc *chatService.Service, aiSvc *aiService.Service, maxDuration time.Duration) *Handler {
	return &Handler{
		chatSvc:     chatSvc,
		aiSvc:       aiSvc,
		maxDuration: maxDuration,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// ErrorStatus maps planning errors to the status and message sent to clients.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chatService.ErrURLRequired):
		return http.StatusBadRequest, msgURLRequired
	case errors.Is(err, chatService.ErrInvalidURL):
		return http.StatusBadRequest, msgInvalidURL
	default:
		return http.StatusInternalServerError, msgProcessFailed
	}
}

// StreamEvent is one SSE frame of a chat reply.
type StreamEvent struct {
	Event   string `json:"event"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleChat 处理一次聊天提交并流式返回回复
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.maxDuration)
		defer cancel()
	}

	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[chat] invalid request body: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	turn, err := h.chatSvc.Plan(ctx, req)
	if err != nil {
		status, message := ErrorStatus(err)
		log.Printf("[chat] rejected request: %v", err)
		utils.RespondError(w, status, message)
		return
	}

	stream, err := h.aiSvc.Reply(ctx, turn.Messages, turn.Instruction)
	if err != nil {
		log.Printf("[chat] failed to open reply: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}
	defer stream.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set(chat.HeaderCodeRequest, strconv.FormatBool(turn.IsCodeRequest))
	if wantsEventStream(r) {
		h.relaySSE(w, flusher, stream)
		return
	}
	h.relayText(w, flusher, stream)
}

// relayText writes each fragment as soon as it arrives. An upstream error
// after the headers went out aborts the connection so the client sees a
// truncated body instead of a clean end.
func (h *Handler) relayText(w http.ResponseWriter, flusher http.Flusher, stream *schema.StreamReader[*schema.Message]) {
	utils.SetupTextStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	total := 0
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			log.Printf("[chat] reply complete, length=%d", total)
			return
		}
		if err != nil {
			log.Printf("[chat] upstream failed mid-stream after %d bytes: %v", total, err)
			panic(http.ErrAbortHandler)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		if err := utils.WriteTextChunk(w, flusher, chunk.Content); err != nil {
			log.Printf("[chat] client went away: %v", err)
			return
		}
		total += len(chunk.Content)
	}
}

func (h *Handler) relaySSE(w http.ResponseWriter, flusher http.Flusher, stream *schema.StreamReader[*schema.Message]) {
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			utils.SendSSEChunk(w, flusher, StreamEvent{Event: "end"})
			return
		}
		if err != nil {
			log.Printf("[chat] upstream failed mid-stream: %v", err)
			utils.SendSSEChunk(w, flusher, StreamEvent{Event: "error", Error: msgProcessFailed})
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		utils.SendSSEChunk(w, flusher, StreamEvent{Event: "delta", Content: chunk.Content})
	}
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
