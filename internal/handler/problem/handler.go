package problem

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
	"github.com/zhouzirui/dsa-tutor/backend/pkg/utils"
)

// Handler 题目目录的HTTP处理器
type Handler struct {
	catalog problem.Catalog
}

// New 创建题目处理器
func New(catalog problem.Catalog) *Handler {
	return &Handler{
		catalog: catalog,
	}
}

// RegisterRoutes 注册题目相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/problems", h.handleListProblems)
	r.Get("/problems/{id}", h.handleGetProblem)
}

// handleListProblems 列出侧边栏中的题目
func (h *Handler) handleListProblems(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.List())
}

// handleGetProblem 返回单个题目及其标题
func (h *Handler) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid problem id")
		return
	}

	entry, ok := h.catalog.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "problem not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, entry)
}
