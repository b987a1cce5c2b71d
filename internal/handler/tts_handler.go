package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/voiceman/internal/model"
)

// SynthesizerInterface は音声合成ハンドラーが必要とするプロバイダインターフェース。
type SynthesizerInterface interface {
	// Synthesize はテキストをMP3音声に変換する。
	// referenceIDが空の場合はプロバイダのデフォルト音声で合成する。
	Synthesize(ctx context.Context, text, referenceID string) ([]byte, error)
}

// SynthesisLatencyRecorder は音声合成のレイテンシを記録する。
type SynthesisLatencyRecorder interface {
	RecordSynthesisLatency(duration time.Duration)
}

// TTSHandler はテキスト音声合成のHTTPハンドラー。
type TTSHandler struct {
	synthesizer SynthesizerInterface
	metrics     SynthesisLatencyRecorder
}

// NewTTSHandler はTTSHandlerを生成する。metricsはnilでもよい。
func NewTTSHandler(synthesizer SynthesizerInterface, metrics SynthesisLatencyRecorder) *TTSHandler {
	return &TTSHandler{
		synthesizer: synthesizer,
		metrics:     metrics,
	}
}

// ttsRequest は音声合成リクエストのボディ。
type ttsRequest struct {
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id"`
}

// Synthesize はテキストを音声に変換する。
// reference_idを指定するとクローンされた声で、省略するとデフォルト音声で合成する。
// 成功時はaudio/mpegのバイナリを返す。
// POST /api/text-to-speech
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.Text == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("textは必須です"))
		return
	}

	start := time.Now()
	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text, req.ReferenceID)
	if h.metrics != nil {
		h.metrics.RecordSynthesisLatency(time.Since(start))
	}
	if err != nil {
		handleServiceError(w, model.NewProviderError())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}
