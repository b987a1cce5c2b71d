package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/voiceman/internal/chat"
	"github.com/hitoshi/voiceman/internal/model"
)

// ChatHandler はAIチャットのHTTPハンドラー。
type ChatHandler struct {
	service chat.Service
	logger  *slog.Logger
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// chatRequest はチャットリクエストのボディ。
// historyは過去の会話（role/content）で、省略可能。
type chatRequest struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history"`
}

// chatResponse はチャットレスポンスのボディ。
type chatResponse struct {
	Response string `json:"response"`
}

// Chat はユーザーメッセージをLLMに転送し、応答テキストを返す。
// POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.Message == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("messageは必須です"))
		return
	}

	response, err := h.service.GetResponse(r.Context(), req.Message, req.History)
	if err != nil {
		h.logger.Error("チャット応答の生成に失敗しました", slog.String("error", err.Error()))
		handleServiceError(w, model.NewChatError())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: response})
}
