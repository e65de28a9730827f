package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/gophchat/models"
)

func testConfig() *config {
	cfg := defaultConfig()
	cfg.JWTSecret = "test-secret"
	cfg.DatabaseDSN = ":memory:"
	cfg.WorkerCommand = "cat"
	return cfg
}

// Вспомогательная функция для проверки наличия маршрута.
func hasRoute(r chi.Router, method, pattern string) bool {
	found := false
	_ = chi.Walk(r, func(m, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if m == method && route == pattern {
			found = true
			return errors.New("found") // Прерываем обход
		}
		return nil
	})
	return found
}

func TestSetupDependencies(t *testing.T) {
	t.Run("Ошибка: неподдерживаемый драйвер", func(t *testing.T) {
		cfg := testConfig()
		cfg.DBDriver = "oracle"
		_, err := setupDependencies(t.Context(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка инициализации БД")
	})

	t.Run("Ошибка: БД недоступна", func(t *testing.T) {
		original := newDB
		t.Cleanup(func() { newDB = original })
		newDB = func(_, _ string) (*sqlx.DB, error) {
			return nil, errors.New("connection refused")
		}

		_, err := setupDependencies(t.Context(), testConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("Ошибка: пустая команда генератора", func(t *testing.T) {
		cfg := testConfig()
		cfg.WorkerCommand = "   "
		_, err := setupDependencies(t.Context(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "генератора")
	})

	t.Run("Успешная инициализация на SQLite", func(t *testing.T) {
		deps, err := setupDependencies(t.Context(), testConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = deps.db.Close() })
		assert.NotNil(t, deps.authHandler)
		assert.NotNil(t, deps.otpHandler)
		assert.NotNil(t, deps.chatHandler)
		assert.NotNil(t, deps.transcriptHandler)
		assert.NotNil(t, deps.verifier)
	})

	t.Run("Генератор openai", func(t *testing.T) {
		cfg := testConfig()
		cfg.CompletionBackend = backendOpenAI
		deps, err := setupDependencies(t.Context(), cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = deps.db.Close() })
	})
}

func TestSetupRouter(t *testing.T) {
	deps, err := setupDependencies(t.Context(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.db.Close() })

	r := setupRouter(deps)
	require.NotNil(t, r)

	routes := []struct{ method, pattern string }{
		{http.MethodGet, "/ping"},
		{http.MethodPost, "/signup"},
		{http.MethodPost, "/login"},
		{http.MethodPost, "/chat"},
		{http.MethodPost, "/send-otp"},
		{http.MethodPost, "/verify-otp"},
		{http.MethodPost, "/reset-password-email"},
		{http.MethodPost, "/api/chat/save"},
		{http.MethodGet, "/api/chat/list"},
		{http.MethodGet, "/api/chat/{chat_id}"},
		{http.MethodPost, "/api/chat/{chat_id}/archive"},
	}
	for _, rt := range routes {
		assert.True(t, hasRoute(r, rt.method, rt.pattern), "%s %s", rt.method, rt.pattern)
	}
}

// Полный сценарий поверх настоящего роутера: регистрация, вход, ответ генератора, история.
func TestServerScenario(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("Пропуск теста: cat не найден в PATH")
	}

	deps, err := setupDependencies(t.Context(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.db.Close() })

	srv := httptest.NewServer(setupRouter(deps))
	t.Cleanup(srv.Close)

	post := func(path, token string, body any) *http.Response {
		t.Helper()
		payload, marshalErr := json.Marshal(body)
		require.NoError(t, marshalErr)
		req, reqErr := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+path, bytes.NewReader(payload))
		require.NoError(t, reqErr)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, doErr := srv.Client().Do(req)
		require.NoError(t, doErr)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}
	get := func(path, token string) *http.Response {
		t.Helper()
		req, reqErr := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+path, nil)
		require.NoError(t, reqErr)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, doErr := srv.Client().Do(req)
		require.NoError(t, doErr)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := post("/signup", "", models.SignupRequest{Username: "alice", Password: "pw123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post("/signup", "", models.SignupRequest{Username: "alice", Password: "again"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post("/login", "", models.LoginRequest{Username: "alice", Password: "pw123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login models.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)

	resp = post("/chat", "", models.CompletionRequest{Message: "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	streamed, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "User: hi", string(streamed))

	resp = post("/api/chat/save", "", models.SaveMessageRequest{ChatID: "c1", Role: models.RoleUser, Message: "hi"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post("/api/chat/save", login.Token, models.SaveMessageRequest{ChatID: "c1", Role: models.RoleUser, Message: "hi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post("/api/chat/save", login.Token, models.SaveMessageRequest{ChatID: "c1", Role: models.RoleAI, Message: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get("/api/chat/c1", login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","message":"hi"},{"role":"ai","message":"hello"}]`, string(body))

	resp = get("/api/chat/list", login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `["c1"]`, string(body))

	resp = post("/api/chat/c1/archive", login.Token, struct{}{})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = get("/ping", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

