package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/voiceman/internal/model"
	"github.com/hitoshi/voiceman/internal/speech"
)

// 認識用音声のアップロード上限（16MB）。
const maxRecognitionUploadBytes = 16 << 20

// SpeechHandler は音声認識（speech-to-text）のHTTPハンドラー。
type SpeechHandler struct {
	recognizer      speech.Recognizer
	converter       speech.AudioConverter
	defaultLanguage string
	logger          *slog.Logger
}

// NewSpeechHandler はSpeechHandlerを生成する。
func NewSpeechHandler(recognizer speech.Recognizer, converter speech.AudioConverter, defaultLanguage string, logger *slog.Logger) *SpeechHandler {
	return &SpeechHandler{
		recognizer:      recognizer,
		converter:       converter,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

// recognizeHTTPResponse は音声認識のAPIレスポンス。
type recognizeHTTPResponse struct {
	Text string `json:"text"`
}

// Recognize はアップロードされた音声をテキストに変換する。
// multipart/form-data で audio_file を受け付け、language と format は省略可能。
// formatがwav以外の場合はWAVに変換してから認識エンジンへ渡す。
// POST /api/speech-to-text
func (h *SpeechHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxRecognitionUploadBytes); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("multipart/form-dataの解析に失敗しました"))
		return
	}

	file, _, err := r.FormFile("audio_file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("音声ファイル(audio_file)が必要です"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("音声ファイルの読み取りに失敗しました"))
		return
	}
	if len(audio) == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("音声ファイルが空です"))
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = h.defaultLanguage
	}

	format := r.FormValue("format")
	if format != "" && format != "wav" {
		converted, err := h.converter.Convert(r.Context(), audio, format)
		if err != nil {
			h.logger.Error("音声フォーマットの変換に失敗しました",
				slog.String("format", format),
				slog.String("error", err.Error()),
			)
			handleServiceError(w, model.NewRecognitionError())
			return
		}
		audio = converted
	}

	text, err := h.recognizer.Recognize(r.Context(), audio, language)
	if err != nil {
		h.logger.Error("音声認識に失敗しました",
			slog.String("language", language),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, model.NewRecognitionError())
		return
	}

	writeJSON(w, http.StatusOK, recognizeHTTPResponse{Text: text})
}
