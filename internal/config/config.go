// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// APIクレデンシャルや保存先ディレクトリはグローバル状態として読まず、
// ここから各コンポーネントへ明示的に注入する。
type Config struct {
	// Database
	DatabaseURL string

	// Claude API
	ClaudeAPIKey  string
	ClaudeBaseURL string
	ClaudeModel   string
	ClaudeTimeout time.Duration

	// Fish TTS API
	FishTTSAPIKey  string
	FishTTSBaseURL string
	FishTTSTimeout time.Duration

	// Speech-to-Text
	RecognizerURL     string
	RecognizerTimeout time.Duration
	DefaultLanguage   string

	// Storage
	VoiceModelsDir string

	// Reconcile worker
	ReconcileInterval time.Duration
	ProcessingExpiry  time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitCreate  int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.ClaudeAPIKey = os.Getenv("CLAUDE_API_KEY")
	if cfg.ClaudeAPIKey == "" {
		missing = append(missing, "CLAUDE_API_KEY")
	}

	cfg.FishTTSAPIKey = os.Getenv("FISH_TTS_API_KEY")
	if cfg.FishTTSAPIKey == "" {
		missing = append(missing, "FISH_TTS_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ClaudeBaseURL = getEnvString("CLAUDE_BASE_URL", "https://api.anthropic.com")
	cfg.ClaudeModel = getEnvString("CLAUDE_MODEL", "claude-3-5-sonnet-20241022")
	cfg.ClaudeTimeout = getEnvDuration("CLAUDE_TIMEOUT", 60*time.Second)
	cfg.FishTTSBaseURL = getEnvString("FISH_TTS_BASE_URL", "https://api.fish-tts.com/v1")
	cfg.FishTTSTimeout = getEnvDuration("FISH_TTS_TIMEOUT", 30*time.Second)
	cfg.RecognizerURL = getEnvString("RECOGNIZER_URL", "")
	cfg.RecognizerTimeout = getEnvDuration("RECOGNIZER_TIMEOUT", 30*time.Second)
	cfg.DefaultLanguage = getEnvString("DEFAULT_LANGUAGE", "ko-KR")
	cfg.VoiceModelsDir = getEnvString("VOICE_MODELS_DIR", "static/voice_models")
	cfg.ReconcileInterval = getEnvDuration("RECONCILE_INTERVAL", 1*time.Hour)
	cfg.ProcessingExpiry = getEnvDuration("PROCESSING_EXPIRY", 24*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCreate = getEnvInt("RATE_LIMIT_CREATE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
