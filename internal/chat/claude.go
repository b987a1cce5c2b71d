// Package chat はClaude Messages APIへの呼び出しアダプタを提供する。
// プロンプト構築はここでは行わず、受け取ったメッセージをそのまま転送する。
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// anthropicVersion はAnthropic APIのバージョンヘッダー値。
const anthropicVersion = "2023-06-01"

// defaultMaxTokens は応答生成の最大トークン数。
const defaultMaxTokens = 2000

// systemPrompt はアシスタントの基本指示。
const systemPrompt = "당신은 친절하고 유용한 AI 비서입니다. 사용자의 질문에 명확하고 간결하게 대답해주세요. " +
	"가능한 한 정확한 정보를 제공하되, 확실하지 않은 내용은 솔직하게 모른다고 말해야 합니다."

// Message は会話履歴の1メッセージを表す。Roleは "user" または "assistant"。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service はチャット応答生成のインターフェース。
type Service interface {
	// GetResponse はユーザーメッセージと会話履歴から応答テキストを生成する。
	GetResponse(ctx context.Context, userMessage string, history []Message) (string, error)
}

// ClaudeClient はClaude Messages APIのHTTPクライアント。
// 認証はx-api-keyヘッダーを使用する（Bearerトークンではない）。
type ClaudeClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// NewClaudeClient はClaudeClientを生成する。
func NewClaudeClient(baseURL, apiKey, model string, client *http.Client, logger *slog.Logger) *ClaudeClient {
	return &ClaudeClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  client,
		logger:  logger,
	}
}

// messagesRequest はMessages APIのリクエストボディ。
// systemはmessages配列とは別に渡す。
type messagesRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// messagesResponse はMessages APIのレスポンスボディ。
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GetResponse はユーザーメッセージと会話履歴をMessages APIに転送し、
// 応答テキストを返す。リトライは行わない。
func (c *ClaudeClient) GetResponse(ctx context.Context, userMessage string, history []Message) (string, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userMessage})

	reqBody, err := json.Marshal(messagesRequest{
		Model:     c.model,
		System:    systemPrompt,
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("チャットAPIリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("チャットAPIがエラーを返しました",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return "", fmt.Errorf("チャットAPIがステータス%dを返しました", resp.StatusCode)
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}
	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("チャットAPIが空の応答を返しました")
	}

	return msgResp.Content[0].Text, nil
}

// compile-time interface check
var _ Service = (*ClaudeClient)(nil)
