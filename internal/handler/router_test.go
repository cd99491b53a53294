package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/dsa-tutor/backend/internal/chatview"
	"github.com/zhouzirui/dsa-tutor/backend/internal/config"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
	aiservice "github.com/zhouzirui/dsa-tutor/backend/internal/service/ai"
	"github.com/zhouzirui/dsa-tutor/backend/internal/service/ai/aitest"
	chatservice "github.com/zhouzirui/dsa-tutor/backend/internal/service/chat"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		AI:     config.AIConfig{StreamResponse: true},
	}
	aiSvc, err := aiservice.NewServiceWithModel(context.Background(), &aitest.FakeModel{Chunks: []string{"hint"}}, cfg.AI)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}
	return NewRouter(cfg, problem.NewMemoryCatalog(problem.Seed()), chatservice.NewService(nil), aiSvc, chatview.NewLineRenderer())
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/problems", "", http.StatusOK},
		{http.MethodPost, "/api/render", `{"markdown":"# hi"}`, http.StatusOK},
		{http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}],"leetcodeUrl":"https://leetcode.com/problems/two-sum/","isNewChat":true}`, http.StatusOK},
		{http.MethodGet, "/", "", http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.Code)
		}
	}
}
