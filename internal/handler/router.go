package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/dsa-tutor/backend/internal/chatview"
	"github.com/zhouzirui/dsa-tutor/backend/internal/config"
	"github.com/zhouzirui/dsa-tutor/backend/internal/handler/chat"
	"github.com/zhouzirui/dsa-tutor/backend/internal/handler/problem"
	"github.com/zhouzirui/dsa-tutor/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/dsa-tutor/backend/internal/middleware"
	problemModel "github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
	aiService "github.com/zhouzirui/dsa-tutor/backend/internal/service/ai"
	chatService "github.com/zhouzirui/dsa-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/dsa-tutor/backend/web"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.Config, catalog problemModel.Catalog, chatSvc *chatService.Service, aiSvc *aiService.Service, renderer chatview.Renderer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigins))

	// Create handlers
	problemHandler := problem.New(catalog)
	chatHandler := chat.New(chatSvc, aiSvc, cfg.Chat.MaxDuration)
	streamHandler := stream.New(chatSvc, aiSvc, renderer, cfg.Chat.MaxDuration)

	r.Route("/api", func(api chi.Router) {
		problemHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
	})

	// Browser chat view
	r.Handle("/*", web.SPAHandler())

	return r
}
