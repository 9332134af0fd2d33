package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/safeai/internal/middleware"
	"github.com/hitoshi/safeai/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpsertProfile はプロフィールを検証し、emailをキーに作成または更新する。
	UpsertProfile(ctx context.Context, in model.ProfileInput) (*model.User, error)
}

// saveUserResponse はPOST /usersの成功レスポンス。
type saveUserResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	bodyLimit int64
}

// NewUserHandler はUserHandlerを生成する。
// bodyLimitはリクエストボディの上限バイト数。
func NewUserHandler(service UserServiceInterface, bodyLimit int64) *UserHandler {
	return &UserHandler{
		service:   service,
		bodyLimit: bodyLimit,
	}
}

// SaveUser はプロフィールを保存する。
// POST /users, POST /api/users
func (h *UserHandler) SaveUser(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeProfile(w, r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.ErrCodeInvalidProfile, err.Error())
		return
	}

	saved, err := h.service.UpsertProfile(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, saveUserResponse{
		Message: "User saved success",
		ID:      saved.ID,
	})
}

// decodeProfile はリクエストボディをProfileInputに変換する。
// 上限を超えるボディ、不正なJSON、後続データのあるボディは拒否する。
func (h *UserHandler) decodeProfile(w http.ResponseWriter, r *http.Request) (model.ProfileInput, error) {
	var in model.ProfileInput

	body := r.Body
	if h.bodyLimit > 0 {
		body = http.MaxBytesReader(w, r.Body, h.bodyLimit)
	}
	dec := json.NewDecoder(body)

	if err := dec.Decode(&in); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return in, fmt.Errorf("request body must not exceed %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return in, errors.New("request body is empty")
		default:
			return in, errors.New("request body must be a JSON object")
		}
	}
	if dec.More() {
		return in, errors.New("request body must contain a single JSON object")
	}
	return in, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
