package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestClaudeClient_GetResponse はMessages APIへのリクエスト構成と
// 応答テキストの取り出しを検証する。
func TestClaudeClient_GetResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		// 認証はx-api-keyヘッダー（Bearerではない）
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}

		var req struct {
			Model     string    `json:"model"`
			System    string    `json:"system"`
			Messages  []Message `json:"messages"`
			MaxTokens int       `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "claude-3-5-sonnet-20241022" {
			t.Errorf("model = %q", req.Model)
		}
		if req.System == "" {
			t.Error("system prompt should be set outside the messages array")
		}
		if req.MaxTokens != 2000 {
			t.Errorf("max_tokens = %d, want 2000", req.MaxTokens)
		}
		// 履歴2件 + 今回のユーザーメッセージ1件
		if len(req.Messages) != 3 {
			t.Errorf("len(messages) = %d, want 3", len(req.Messages))
		}
		last := req.Messages[len(req.Messages)-1]
		if last.Role != "user" || last.Content != "今日の天気は？" {
			t.Errorf("last message = %+v", last)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "今日は晴れです。"},
			},
		})
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.URL, "test-key", "claude-3-5-sonnet-20241022", srv.Client(), testLogger())

	history := []Message{
		{Role: "user", Content: "こんにちは"},
		{Role: "assistant", Content: "こんにちは！"},
	}
	resp, err := client.GetResponse(context.Background(), "今日の天気は？", history)
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if resp != "今日は晴れです。" {
		t.Errorf("response = %q", resp)
	}
}

func TestClaudeClient_GetResponse_NoHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []Message `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 1 {
			t.Errorf("len(messages) = %d, want 1", len(req.Messages))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "ok"}},
		})
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.URL, "test-key", "m", srv.Client(), testLogger())

	if _, err := client.GetResponse(context.Background(), "hi", nil); err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
}

func TestClaudeClient_GetResponse_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.URL, "test-key", "m", srv.Client(), testLogger())

	_, err := client.GetResponse(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestClaudeClient_GetResponse_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []map[string]string{}})
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.URL, "test-key", "m", srv.Client(), testLogger())

	_, err := client.GetResponse(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}
