package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/dsa-tutor/backend/internal/chatview"
	"github.com/zhouzirui/dsa-tutor/backend/internal/config"
	"github.com/zhouzirui/dsa-tutor/backend/internal/handler"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
	"github.com/zhouzirui/dsa-tutor/backend/internal/service/ai"
	"github.com/zhouzirui/dsa-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/dsa-tutor/backend/internal/service/fetcher"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The tutor cannot answer anything without a model, so a missing
	// credential stops startup.
	if !cfg.AI.Enabled() {
		log.Fatalf("%s is not set for AI_PROVIDER=%s", cfg.AI.CredentialEnv(), cfg.AI.Provider)
	}

	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	log.Printf("AI service initialized: provider=%s model=%s stream=%v", cfg.AI.Provider, cfg.AI.Model, cfg.AI.StreamResponse)

	problemFetcher, err := fetcher.New(fetcher.Config{
		Interpreters: cfg.Fetcher.Interpreters,
		Script:       cfg.Fetcher.Script,
		Command:      cfg.Fetcher.Command,
		Timeout:      cfg.Fetcher.Timeout,
		CacheSize:    cfg.Fetcher.CacheSize,
	})
	if err != nil {
		log.Fatalf("failed to initialize problem fetcher: %v", err)
	}

	catalog := problem.NewMemoryCatalog(problem.Seed())
	chatService := chat.NewService(problemFetcher)
	renderer := chatview.NewRenderer(cfg.Chat.RenderMode)

	router := handler.NewRouter(*cfg, catalog, chatService, aiService, renderer)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("DSA tutor backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
