package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, "INVALID_PROFILE", "email is required")

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["error"] != "email is required" {
		t.Errorf("error = %q, want %q", body["error"], "email is required")
	}
	if body["code"] != "INVALID_PROFILE" {
		t.Errorf("code = %q, want %q", body["code"], "INVALID_PROFILE")
	}
	if len(body) != 2 {
		t.Errorf("unexpected fields in body: %v", body)
	}
}

// TestWriteInternalServerError は内部エラーの詳細を含まない500レスポンスを検証する。
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", body.Code, "INTERNAL_ERROR")
	}
	if body.Error != "Internal server error" {
		t.Errorf("error = %q, want %q", body.Error, "Internal server error")
	}
}

func TestWriteErrorResponseWithAction_IncludesAction(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponseWithAction(w, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE",
		"Identity provider unavailable", "しばらく待ってから再度お試しください。")

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Action != "しばらく待ってから再度お試しください。" {
		t.Errorf("action = %q", body.Action)
	}
	if body.Code != "PROVIDER_UNAVAILABLE" {
		t.Errorf("code = %q, want %q", body.Code, "PROVIDER_UNAVAILABLE")
	}
}
