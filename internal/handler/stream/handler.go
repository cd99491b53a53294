package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/dsa-tutor/backend/internal/chatview"
	"github.com/zhouzirui/dsa-tutor/backend/internal/handler/chat"
	chatModel "github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
	aiService "github.com/zhouzirui/dsa-tutor/backend/internal/service/ai"
	chatService "github.com/zhouzirui/dsa-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/dsa-tutor/backend/pkg/utils"
)

const (
	failureReply = "Sorry, I encountered an error. Please try again."
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Handler streams rendered chat replies to the browser view over a websocket.
type Handler struct {
	chatSvc     *chatService.Service
	aiSvc       *aiService.Service
	renderer    chatview.Renderer
	maxDuration time.Duration
	upgrader    websocket.Upgrader
}

// New creates a stream handler.
func New(chatSvc *chatService.Service, aiSvc *aiService.Service, renderer chatview.Renderer, maxDuration time.Duration) *Handler {
	return &Handler{
		chatSvc:     chatSvc,
		aiSvc:       aiSvc,
		renderer:    renderer,
		maxDuration: maxDuration,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册流式视图相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
	r.Post("/render", h.handleRender)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ReplyPayload is the rendered state of the assistant message.
type ReplyPayload struct {
	Content       string `json:"content"`
	HTML          string `json:"html"`
	IsCodeRequest bool   `json:"isCodeRequest,omitempty"`
}

// ErrorPayload reports a failed turn.
type ErrorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// handleRender renders markdown with the configured chat view renderer.
func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"html": h.renderer.RenderHTML(payload.Markdown)})
}

// handleWebSocket 处理WebSocket连接. Turns on one connection run one at a time.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new chat view connection from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "chat":
			var req chatModel.Request
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				h.sendError(conn, http.StatusInternalServerError, "Failed to process request")
				continue
			}
			if err := h.runTurn(ctx, conn, req); err != nil {
				log.Printf("[websocket] write failed: %v", err)
				return
			}
		default:
			h.sendError(conn, http.StatusBadRequest, "unknown message type")
		}
	}
}

// runTurn streams one reply. The returned error is only set when the
// connection itself failed.
func (h *Handler) runTurn(ctx context.Context, conn *websocket.Conn, req chatModel.Request) error {
	if h.maxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.maxDuration)
		defer cancel()
	}

	turn, err := h.chatSvc.Plan(ctx, req)
	if err != nil {
		status, reason := chat.ErrorStatus(err)
		return h.sendError(conn, status, reason)
	}

	stream, err := h.aiSvc.Reply(ctx, turn.Messages, turn.Instruction)
	if err != nil {
		log.Printf("[websocket] failed to open reply: %v", err)
		return h.sendError(conn, http.StatusInternalServerError, "Failed to process request")
	}
	defer stream.Close()

	var accumulated strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("[websocket] upstream failed mid-stream: %v", err)
			return h.sendError(conn, http.StatusBadGateway, "")
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		accumulated.WriteString(chunk.Content)
		if err := h.send(conn, "delta", h.payload(accumulated.String(), false)); err != nil {
			return err
		}
	}

	return h.send(conn, "done", h.payload(accumulated.String(), turn.IsCodeRequest))
}

func (h *Handler) payload(content string, codeRequest bool) ReplyPayload {
	return ReplyPayload{
		Content:       content,
		HTML:          h.renderer.RenderHTML(content),
		IsCodeRequest: codeRequest,
	}
}

func (h *Handler) send(conn *websocket.Conn, kind string, data interface{}) error {
	return conn.WriteJSON(outgoingMessage{
		Type:      kind,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Handler) sendError(conn *websocket.Conn, status int, reason string) error {
	return h.send(conn, "error", ErrorPayload{Message: failureReply, Status: status, Reason: reason})
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
