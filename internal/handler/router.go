package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/voiceman/internal/chat"
	"github.com/hitoshi/voiceman/internal/middleware"
	"github.com/hitoshi/voiceman/internal/speech"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusReporter    middleware.StatusReporter

	// ヘルスチェック
	DB Pinger

	// Prometheusスクレイプ用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler

	// チャット
	ChatService chat.Service

	// 音声認識
	Recognizer      speech.Recognizer
	Converter       speech.AudioConverter
	DefaultLanguage string

	// 音声合成
	Synthesizer     SynthesizerInterface
	LatencyRecorder SynthesisLatencyRecorder

	// 音声モデル
	VoiceModelService VoiceModelServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → RateLimitMiddleware(General)
//
// ヘルスチェックはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS → パニック回復 → アクセスログ を全ルートに適用
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusReporter))

	healthHandler := NewHealthHandler(deps.DB)
	chatHandler := NewChatHandler(deps.ChatService, deps.Logger)
	speechHandler := NewSpeechHandler(deps.Recognizer, deps.Converter, deps.DefaultLanguage, deps.Logger)
	ttsHandler := NewTTSHandler(deps.Synthesizer, deps.LatencyRecorder)
	voiceModelHandler := NewVoiceModelHandler(deps.VoiceModelService)
	userHandler := NewUserHandler(deps.UserService)

	// ヘルスチェック（レート制限の対象外）
	r.Get("/api/health", healthHandler.Check)

	// Prometheusメトリクス（レート制限の対象外）
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- レート制限付きのAPIルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		// ユーザー管理
		r.Route("/api/users/{id}", func(r chi.Router) {
			r.Get("/", userHandler.GetProfile)
			r.Put("/", userHandler.UpdateProfile)
			r.Delete("/", userHandler.DeleteAccount)
		})

		// チャット
		r.Post("/api/chat", chatHandler.Chat)

		// 音声認識・音声合成
		r.Post("/api/speech-to-text", speechHandler.Recognize)
		r.Post("/api/text-to-speech", ttsHandler.Synthesize)

		// 音声モデル管理
		r.Route("/api/voice-models", func(r chi.Router) {
			// POST /api/voice-models - プロバイダ登録を伴うため作成専用レート制限を追加
			r.With(deps.RateLimiter.CreateMiddleware()).Post("/", voiceModelHandler.Create)
			r.Get("/", voiceModelHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", voiceModelHandler.Get)
				r.Patch("/", voiceModelHandler.Update)
				r.Delete("/", voiceModelHandler.Delete)
				r.Delete("/purge", voiceModelHandler.Purge)
			})
		})
	})

	return r
}
