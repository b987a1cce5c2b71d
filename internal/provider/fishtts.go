// Package provider は外部音声クローン/合成API（Fish TTS）への
// ステートレスな呼び出しアダプタを提供する。
// リトライは行わず、タイムアウトは注入されたhttp.Clientの設定に従う。
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
)

// VoiceProvider は音声クローンプロバイダのインターフェース。
// ライフサイクルマネージャは登録のみ、合成はハンドラ層のみが使用する。
type VoiceProvider interface {
	// RegisterVoiceSample はサンプル音声からクローンモデルを登録し、
	// プロバイダが発行する参照IDを返す。
	RegisterVoiceSample(ctx context.Context, ownerID int64, audio []byte) (string, error)

	// Synthesize はテキストを音声に変換する。
	// referenceIDが空の場合はプロバイダのデフォルト音声を使用する。
	Synthesize(ctx context.Context, text, referenceID string) ([]byte, error)
}

// FishTTSClient はFish TTS APIのHTTPクライアント。
// 認証はプロセス全体で設定されたBearerクレデンシャルを使用する。
type FishTTSClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewFishTTSClient はFishTTSClientを生成する。
func NewFishTTSClient(baseURL, apiKey string, client *http.Client, logger *slog.Logger) *FishTTSClient {
	return &FishTTSClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		logger:  logger,
	}
}

// registerResponse は音声モデル登録APIのレスポンス。
type registerResponse struct {
	ReferenceID string `json:"reference_id"`
}

// synthesizeRequest は音声合成APIのリクエストボディ。
type synthesizeRequest struct {
	Text         string `json:"text"`
	OutputFormat string `json:"output_format"`
	ReferenceID  string `json:"reference_id,omitempty"`
}

// RegisterVoiceSample はサンプル音声をmultipartでアップロードし、
// プロバイダが発行する参照IDを返す。
func (c *FishTTSClient) RegisterVoiceSample(ctx context.Context, ownerID int64, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("user_id", fmt.Sprintf("%d", ownerID)); err != nil {
		return "", fmt.Errorf("マルチパートフィールドの書き込みに失敗しました: %w", err)
	}
	if err := mw.WriteField("model_name", fmt.Sprintf("%d_voice_model", ownerID)); err != nil {
		return "", fmt.Errorf("マルチパートフィールドの書き込みに失敗しました: %w", err)
	}

	fw, err := mw.CreateFormFile("audio_file", fmt.Sprintf("%d_sample.wav", ownerID))
	if err != nil {
		return "", fmt.Errorf("マルチパートファイルの作成に失敗しました: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("サンプル音声の書き込みに失敗しました: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("マルチパートの終端処理に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voice-models", &body)
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("音声モデル登録リクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("音声モデル登録APIがエラーを返しました",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return "", fmt.Errorf("音声モデル登録APIがステータス%dを返しました", resp.StatusCode)
	}

	var regResp registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&regResp); err != nil {
		return "", fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}
	if regResp.ReferenceID == "" {
		return "", fmt.Errorf("プロバイダが空の参照IDを返しました")
	}

	return regResp.ReferenceID, nil
}

// Synthesize はテキストを音声に変換し、音声データを返す。
func (c *FishTTSClient) Synthesize(ctx context.Context, text, referenceID string) ([]byte, error) {
	reqBody, err := json.Marshal(synthesizeRequest{
		Text:         text,
		OutputFormat: "mp3",
		ReferenceID:  referenceID,
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("音声合成リクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("音声合成APIがエラーを返しました",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return nil, fmt.Errorf("音声合成APIがステータス%dを返しました", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("音声データの読み込みに失敗しました: %w", err)
	}

	return audio, nil
}

// compile-time interface check
var _ VoiceProvider = (*FishTTSClient)(nil)
