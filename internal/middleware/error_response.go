package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// errorは利用者向けの短い説明、codeは機械判定用のコード、actionは対処方法。
type ErrorResponseBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Action string `json:"action,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	WriteErrorResponseWithAction(w, statusCode, code, message, "")
}

// WriteErrorResponseWithAction は対処方法を含めてエラーレスポンスを書き込む。
// actionが空の場合は省略される。
func WriteErrorResponseWithAction(w http.ResponseWriter, statusCode int, code, message, action string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:  message,
		Code:   code,
		Action: action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、利用者には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}
