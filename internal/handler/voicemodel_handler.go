package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/voiceman/internal/model"
)

// 音声サンプルのアップロード上限（32MB）。
const maxSampleUploadBytes = 32 << 20

// VoiceModelServiceInterface は音声モデルハンドラーが必要とするサービスインターフェース。
type VoiceModelServiceInterface interface {
	// CreateVoiceModel は音声サンプルからボイスクローンモデルを登録する。
	CreateVoiceModel(ctx context.Context, userID int64, modelName string, audio []byte, description string) (*model.VoiceModel, error)
	// GetModelByID はIDで音声モデルを取得する。見つからない場合はnilを返す。
	GetModelByID(ctx context.Context, modelID int64) (*model.VoiceModel, error)
	// GetModelsByUser はユーザーのアクティブな音声モデル一覧を返す。
	GetModelsByUser(ctx context.Context, userID int64) ([]*model.VoiceModel, error)
	// UpdateModel は音声モデルのメタデータを更新する。
	UpdateModel(ctx context.Context, modelID int64, update model.VoiceModelUpdate) (*model.VoiceModel, error)
	// DeleteModel は音声モデルをソフト削除する。
	DeleteModel(ctx context.Context, modelID int64) bool
	// HardDeleteModel は音声モデルとサンプルファイルを完全に削除する。
	HardDeleteModel(ctx context.Context, modelID int64) bool
}

// VoiceModelHandler は音声モデル管理のHTTPハンドラー。
type VoiceModelHandler struct {
	service VoiceModelServiceInterface
}

// NewVoiceModelHandler はVoiceModelHandlerを生成する。
func NewVoiceModelHandler(service VoiceModelServiceInterface) *VoiceModelHandler {
	return &VoiceModelHandler{
		service: service,
	}
}

// voiceModelResponse は音声モデルのAPIレスポンス。
// サーバー内部のファイルパスは公開しない。
type voiceModelResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ModelName   string    `json:"model_name"`
	ReferenceID string    `json:"reference_id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// toVoiceModelResponse はドメインのVoiceModelをレスポンス型に変換する。
func toVoiceModelResponse(vm *model.VoiceModel) voiceModelResponse {
	return voiceModelResponse{
		ID:          vm.ID,
		UserID:      vm.UserID,
		ModelName:   vm.ModelName,
		ReferenceID: vm.ReferenceID,
		Description: vm.Description,
		Status:      string(vm.Status),
		CreatedAt:   vm.CreatedAt,
		UpdatedAt:   vm.UpdatedAt,
	}
}

// updateVoiceModelRequest は音声モデル更新リクエストのボディ。
// nilのフィールドは変更しない。
type updateVoiceModelRequest struct {
	ModelName   *string `json:"model_name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Create は音声サンプルのアップロードと音声モデルの登録を処理する。
// multipart/form-data で user_id, model_name, description, audio_file を受け付ける。
// POST /api/voice-models
func (h *VoiceModelHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSampleUploadBytes); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("multipart/form-dataの解析に失敗しました"))
		return
	}

	userID, err := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("user_idは正の整数で指定してください"))
		return
	}

	modelName := r.FormValue("model_name")
	description := r.FormValue("description")

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

	vm, err := h.service.CreateVoiceModel(r.Context(), userID, modelName, audio, description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toVoiceModelResponse(vm))
}

// List はユーザーのアクティブな音声モデル一覧を返す。
// GET /api/voice-models?user_id=...
func (h *VoiceModelHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("user_idは正の整数で指定してください"))
		return
	}

	models, err := h.service.GetModelsByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 一覧が空の場合も空配列を返す
	responses := make([]voiceModelResponse, 0, len(models))
	for _, vm := range models {
		responses = append(responses, toVoiceModelResponse(vm))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"voice_models": responses,
	})
}

// Get はIDで音声モデルを取得する。
// GET /api/voice-models/:id
func (h *VoiceModelHandler) Get(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	vm, err := h.service.GetModelByID(r.Context(), modelID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if vm == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewModelNotFoundError(modelID))
		return
	}

	writeJSON(w, http.StatusOK, toVoiceModelResponse(vm))
}

// Update は音声モデルのメタデータを更新する。
// PATCH /api/voice-models/:id
func (h *VoiceModelHandler) Update(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req updateVoiceModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	update := model.VoiceModelUpdate{
		ModelName:   req.ModelName,
		Description: req.Description,
	}
	if req.Status != nil {
		status := model.ModelStatus(*req.Status)
		update.Status = &status
	}

	vm, err := h.service.UpdateModel(r.Context(), modelID, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVoiceModelResponse(vm))
}

// Delete は音声モデルをソフト削除する。
// レコードはdeleted状態になり、一覧と音声合成から除外される。
// DELETE /api/voice-models/:id
func (h *VoiceModelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if !h.service.DeleteModel(r.Context(), modelID) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewModelNotFoundError(modelID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Purge は音声モデルのレコードとサンプルファイルを完全に削除する。
// DELETE /api/voice-models/:id/purge
func (h *VoiceModelHandler) Purge(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if !h.service.HardDeleteModel(r.Context(), modelID) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewModelNotFoundError(modelID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
