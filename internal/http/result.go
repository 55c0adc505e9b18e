package httpapi

import (
	"encoding/json"
	"net/http"
)

// Result 统一响应包装
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK[T any](w http.ResponseWriter, result T) {
	writeJSON(w, http.StatusOK, Ok(result))
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Fail(message))
}
