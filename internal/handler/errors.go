package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/safeai/internal/middleware"
	"github.com/hitoshi/safeai/internal/model"
)

// providerRetryAfter はPROVIDER_UNAVAILABLE時に返すRetry-Afterの秒数。
const providerRetryAfter = 30

// トークン検証失敗はどの検査で落ちたかをクライアントに返さない。
const (
	codeInvalidToken    = "INVALID_TOKEN"
	messageInvalidToken = "Invalid token"
	actionInvalidToken  = "再度ログインしてください。"
)

// handleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
// 詳細なエラーコードと原因はログにのみ記録する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.RequestIDFromContext(r.Context())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("internal server error",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	switch apiErr.Category {
	case model.CategoryValidation:
		middleware.WriteErrorResponseWithAction(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Action)

	case model.CategoryAuth:
		slog.Info("token rejected",
			slog.String("request_id", requestID),
			slog.String("code", apiErr.Code),
		)
		// actionは全種別で共通の文言を使い、どの検査で落ちたかを漏らさない。
		middleware.WriteErrorResponseWithAction(w, http.StatusUnauthorized, codeInvalidToken, messageInvalidToken, actionInvalidToken)

	case model.CategoryProvider:
		slog.Warn("identity provider unavailable",
			slog.String("request_id", requestID),
			slog.String("error", apiErr.Error()),
		)
		w.Header().Set("Retry-After", strconv.Itoa(providerRetryAfter))
		middleware.WriteErrorResponseWithAction(w, http.StatusServiceUnavailable, apiErr.Code, "Identity provider unavailable", apiErr.Action)

	default:
		slog.Error("service error",
			slog.String("request_id", requestID),
			slog.String("code", apiErr.Code),
			slog.String("error", apiErr.Error()),
		)
		if apiErr.Code == model.ErrCodeStoreUnavailable {
			middleware.WriteErrorResponseWithAction(w, http.StatusInternalServerError, apiErr.Code, "Database error", apiErr.Action)
			return
		}
		middleware.WriteInternalServerError(w)
	}
}
