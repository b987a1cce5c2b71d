package config

import (
	"testing"
	"time"
)

// setRequiredEnv は必須環境変数を設定する。
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/voiceman")
	t.Setenv("CLAUDE_API_KEY", "claude-key")
	t.Setenv("FISH_TTS_API_KEY", "fish-key")
}

func TestLoad_RequiredMissing(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CLAUDE_API_KEY", "")
	t.Setenv("FISH_TTS_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when required env vars are missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ClaudeModel != "claude-3-5-sonnet-20241022" {
		t.Errorf("ClaudeModel = %q", cfg.ClaudeModel)
	}
	if cfg.DefaultLanguage != "ko-KR" {
		t.Errorf("DefaultLanguage = %q, want ko-KR", cfg.DefaultLanguage)
	}
	if cfg.VoiceModelsDir != "static/voice_models" {
		t.Errorf("VoiceModelsDir = %q", cfg.VoiceModelsDir)
	}
	if cfg.ProcessingExpiry != 24*time.Hour {
		t.Errorf("ProcessingExpiry = %v, want 24h", cfg.ProcessingExpiry)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.RateLimitGeneral != 120 || cfg.RateLimitCreate != 10 {
		t.Errorf("rate limits = %d / %d", cfg.RateLimitGeneral, cfg.RateLimitCreate)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLAUDE_TIMEOUT", "90s")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("RATE_LIMIT_CREATE", "5")
	t.Setenv("PROCESSING_EXPIRY", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ClaudeTimeout != 90*time.Second {
		t.Errorf("ClaudeTimeout = %v, want 90s", cfg.ClaudeTimeout)
	}
	if cfg.ServerPort != "9000" {
		t.Errorf("ServerPort = %q, want 9000", cfg.ServerPort)
	}
	if cfg.RateLimitCreate != 5 {
		t.Errorf("RateLimitCreate = %d, want 5", cfg.RateLimitCreate)
	}
	if cfg.ProcessingExpiry != time.Hour {
		t.Errorf("ProcessingExpiry = %v, want 1h", cfg.ProcessingExpiry)
	}
}

// TestLoad_InvalidValuesFallBack は不正な値がデフォルトにフォールバックすることを検証する。
func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_GENERAL", "not-a-number")
	t.Setenv("CLAUDE_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want default 120", cfg.RateLimitGeneral)
	}
	if cfg.ClaudeTimeout != 60*time.Second {
		t.Errorf("ClaudeTimeout = %v, want default 60s", cfg.ClaudeTimeout)
	}
}
