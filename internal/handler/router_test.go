package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/voiceman/internal/chat"
	"github.com/hitoshi/voiceman/internal/middleware"
	"github.com/hitoshi/voiceman/internal/model"
)

type mockStatusReporter struct {
	statuses []int
}

func (m *mockStatusReporter) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

// newTestRouter は全依存をモックで構成したルーターを返す。
func newTestRouter(t *testing.T) (http.Handler, *mockStatusReporter) {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	reporter := &mockStatusReporter{}
	deps := &RouterDeps{
		Logger:            discardLogger(),
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		StatusReporter:    reporter,

		DB: &mockPinger{},

		ChatService: &mockChatService{
			getResponseFn: func(ctx context.Context, userMessage string, history []chat.Message) (string, error) {
				return "応答", nil
			},
		},

		Recognizer:      &mockRecognizer{},
		Converter:       &mockConverter{},
		DefaultLanguage: "ko-KR",

		Synthesizer: &mockSynthesizer{},

		VoiceModelService: &mockVoiceModelService{
			getByIDFn: func(ctx context.Context, modelID int64) (*model.VoiceModel, error) {
				return &model.VoiceModel{ID: modelID, Status: model.ModelStatusActive}, nil
			},
		},
		UserService: &mockUserService{},
	}

	return NewRouter(deps), reporter
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_ChatEndpoint(t *testing.T) {
	router, reporter := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.RemoteAddr = "192.0.2.1:12345"
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	// ロギングミドルウェアがステータスを記録すること
	if len(reporter.statuses) != 1 || reporter.statuses[0] != http.StatusOK {
		t.Errorf("reported statuses = %v", reporter.statuses)
	}
}

// TestRouter_VoiceModelByID はchiのURLパラメータ付きルートが
// 正しくディスパッチされることを検証する。
func TestRouter_VoiceModelByID(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/voice-models/5", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_CORSHeaders(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Result().Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
