package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse 是所有非200接口共用的错误体，聊天客户端按此解析失败原因
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON 以给定状态码写出JSON，题目列表与渲染接口使用
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 写出 {"error": message}，例如无效题目链接返回400
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}
