// Package speech は音声認識（speech-to-text）への呼び出しアダプタを提供する。
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Recognizer は音声認識のインターフェース。
type Recognizer interface {
	// Recognize は音声データを指定言語で認識し、テキストを返す。
	Recognize(ctx context.Context, audio []byte, language string) (string, error)
}

// HTTPRecognizer は外部の認識エンジンへのHTTPクライアント。
// 音声データをWAVとしてPOSTし、認識結果のテキストを受け取る。
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPRecognizer はHTTPRecognizerを生成する。
func NewHTTPRecognizer(endpoint string, client *http.Client, logger *slog.Logger) *HTTPRecognizer {
	return &HTTPRecognizer{
		endpoint: endpoint,
		client:   client,
		logger:   logger,
	}
}

// recognizeResponse は認識エンジンのレスポンスボディ。
type recognizeResponse struct {
	Text string `json:"text"`
}

// Recognize は音声データを認識エンジンにPOSTし、認識テキストを返す。
// 言語コードはクエリパラメータで渡す。リトライは行わない。
func (r *HTTPRecognizer) Recognize(ctx context.Context, audio []byte, language string) (string, error) {
	url := fmt.Sprintf("%s?language=%s", r.endpoint, language)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("音声認識リクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		r.logger.Error("音声認識エンジンがエラーを返しました",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return "", fmt.Errorf("音声認識エンジンがステータス%dを返しました", resp.StatusCode)
	}

	var recResp recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&recResp); err != nil {
		return "", fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}

	return recResp.Text, nil
}

// compile-time interface check
var _ Recognizer = (*HTTPRecognizer)(nil)
