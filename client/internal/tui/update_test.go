//nolint:testpackage // Тесты в том же пакете для доступа к модели.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/gophchat/client/internal/api"
	"github.com/maynagashev/gophchat/client/internal/chat"
	"github.com/maynagashev/gophchat/models"
)

// fakeBackend хранит переписку в памяти и отвечает эхом.
type fakeBackend struct {
	messages  map[string][]models.ChatMessageView
	order     []string
	chatErr   error
	renameErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{messages: map[string][]models.ChatMessageView{}}
}

func (f *fakeBackend) Chat(_ context.Context, message string) (io.ReadCloser, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return io.NopCloser(strings.NewReader("echo: " + message)), nil
}

func (f *fakeBackend) SaveMessage(_ context.Context, chatID string, role models.Role, message string) error {
	if _, ok := f.messages[chatID]; !ok {
		f.order = append([]string{chatID}, f.order...)
	}
	f.messages[chatID] = append(f.messages[chatID], models.ChatMessageView{Role: role, Message: message})
	return nil
}

func (f *fakeBackend) ListChats(context.Context) ([]string, error) {
	return append([]string{}, f.order...), nil
}

func (f *fakeBackend) GetMessages(_ context.Context, chatID string) ([]models.ChatMessageView, error) {
	return append([]models.ChatMessageView{}, f.messages[chatID]...), nil
}

func (f *fakeBackend) ArchiveChat(_ context.Context, chatID string) (string, error) {
	return "11/" + chatID + "/a.json", nil
}

func (f *fakeBackend) RenameChat(context.Context, string, string) error {
	return f.renameErr
}

func (f *fakeBackend) DeleteChat(context.Context, string) error {
	return api.ErrNotImplementedOnServer
}

type fakeAuth struct {
	token    string
	loginErr error
	otpCalls []string
}

func (f *fakeAuth) Signup(context.Context, string, string) error { return nil }

func (f *fakeAuth) Login(_ context.Context, username, _ string) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "token-" + username, nil
}

func (f *fakeAuth) SendOTP(_ context.Context, email string) error {
	f.otpCalls = append(f.otpCalls, "send:"+email)
	return nil
}

func (f *fakeAuth) VerifyOTP(_ context.Context, email, code string) error {
	f.otpCalls = append(f.otpCalls, "verify:"+email+":"+code)
	return nil
}

func (f *fakeAuth) ResetPassword(_ context.Context, email, _ string) error {
	f.otpCalls = append(f.otpCalls, "reset:"+email)
	return nil
}

func (f *fakeAuth) SetAuthToken(token string) { f.token = token }

type fakeTokens struct {
	saved   string
	cleared bool
}

func (f *fakeTokens) Save(token string) error {
	f.saved = token
	return nil
}

func (f *fakeTokens) Clear() error {
	f.cleared = true
	f.saved = ""
	return nil
}

type testEnv struct {
	m       *model
	backend *fakeBackend
	auth    *fakeAuth
	tokens  *fakeTokens
}

func newTestEnv(authenticated bool) *testEnv {
	backend := newFakeBackend()
	ctrl := chat.NewController(backend).WithClock(func() time.Time { return time.UnixMilli(42) })
	auth := &fakeAuth{}
	tokens := &fakeTokens{}
	return &testEnv{
		m:       initModel(ctrl, auth, tokens, plainRenderer{}, authenticated, false),
		backend: backend,
		auth:    auth,
		tokens:  tokens,
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case keyEnter:
		return tea.KeyMsg{Type: tea.KeyEnter}
	case keyEsc:
		return tea.KeyMsg{Type: tea.KeyEsc}
	case keyTab:
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+e":
		return tea.KeyMsg{Type: tea.KeyCtrlE}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runTurn читает сообщения хода, пока поток не закончится.
func runTurn(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; m.turnInProgress(); i++ {
		require.Less(t, i, 100, "ход не завершился")
		require.NotNil(t, cmd)
		_, cmd = m.Update(cmd())
	}
}

func TestInitModel(t *testing.T) {
	assert.Equal(t, loginScreen, newTestEnv(false).m.state)

	env := newTestEnv(true)
	assert.Equal(t, chatScreen, env.m.state)
	assert.True(t, env.m.messageInput.Focused())
	assert.Contains(t, env.m.transcript.View(), emptyTranscriptHint)
}

func TestLoginScreen(t *testing.T) {
	t.Run("Пустые поля", func(t *testing.T) {
		env := newTestEnv(false)
		env.m.Update(key(keyEnter))
		assert.Equal(t, loginScreen, env.m.state)
		assert.Contains(t, env.m.status, "Введите имя пользователя и пароль")
	})

	t.Run("Успешный вход", func(t *testing.T) {
		env := newTestEnv(false)
		env.m.usernameInput.SetValue("alice")
		env.m.Update(key(keyTab))
		assert.True(t, env.m.passwordInput.Focused())
		env.m.passwordInput.SetValue("pw1")

		msg := env.m.makeLoginCmd("alice", "pw1")()
		require.IsType(t, loginSuccessMsg{}, msg)
		_, cmd := env.m.Update(msg)

		assert.NotNil(t, cmd)
		assert.Equal(t, chatScreen, env.m.state)
		assert.Equal(t, "token-alice", env.auth.token)
		assert.Equal(t, "token-alice", env.tokens.saved, "токен сохраняется между запусками")
	})

	t.Run("Неверный пароль", func(t *testing.T) {
		env := newTestEnv(false)
		env.auth.loginErr = api.ErrAuthorization
		msg := env.m.makeLoginCmd("alice", "bad")()
		env.m.Update(msg)

		assert.Equal(t, loginScreen, env.m.state)
		assert.Contains(t, env.m.status, "Вход")
		assert.False(t, env.tokens.cleared)
	})

	t.Run("Регистрация", func(t *testing.T) {
		env := newTestEnv(false)
		msg := env.m.makeSignupCmd("bob", "pw")()
		env.m.Update(msg)
		assert.Equal(t, loginScreen, env.m.state)
		assert.Contains(t, env.m.status, "bob")
	})
}

func TestChatScreen_Turn(t *testing.T) {
	env := newTestEnv(true)
	m := env.m

	m.messageInput.SetValue("hi")
	_, cmd := m.Update(key(keyEnter))
	require.True(t, m.turnInProgress())
	assert.Empty(t, m.messageInput.Value())
	assert.Contains(t, m.transcript.View(), streamCursor, "во время потока виден курсор")

	runTurn(t, m, cmd)

	assert.Equal(t, chat.StateSettled, m.ctrl.State())
	assert.Equal(t, "chat-42", m.ctrl.ActiveChatID())
	view := m.transcript.View()
	assert.Contains(t, view, "hi")
	assert.Contains(t, view, "echo: hi")
	assert.NotContains(t, view, streamCursor)
	require.Len(t, m.chatList.Items(), 1)
	assert.Equal(t, chatItem("chat-42"), m.chatList.Items()[0])
	assert.Equal(t, []models.ChatMessageView{
		{Role: models.RoleUser, Message: "hi"},
		{Role: models.RoleAI, Message: "echo: hi"},
	}, env.backend.messages["chat-42"])
}

func TestChatScreen_TurnError(t *testing.T) {
	env := newTestEnv(true)
	env.backend.chatErr = errors.New("connection refused")

	env.m.messageInput.SetValue("hi")
	_, cmd := env.m.Update(key(keyEnter))
	runTurn(t, env.m, cmd)

	assert.Equal(t, chat.StateIdle, env.m.ctrl.State())
	assert.Contains(t, env.m.turnErr, "connection refused")
	assert.Contains(t, env.m.View(), "Ошибка: connection refused")

	env.backend.chatErr = nil
	env.m.messageInput.SetValue("again")
	_, cmd = env.m.Update(key(keyEnter))
	assert.Empty(t, env.m.turnErr, "ошибка скрывается при следующей отправке")
	runTurn(t, env.m, cmd)
}

func TestChatScreen_SessionExpired(t *testing.T) {
	env := newTestEnv(true)
	env.tokens.saved = "old"
	env.auth.token = "old"

	env.m.Update(errMsg{op: "Список чатов", err: api.ErrAuthorization})

	assert.Equal(t, loginScreen, env.m.state)
	assert.True(t, env.tokens.cleared)
	assert.Empty(t, env.auth.token)
	assert.Contains(t, env.m.status, "Сессия истекла")
}

func TestChatScreen_Hotkeys(t *testing.T) {
	env := newTestEnv(true)
	m := env.m

	m.Update(key("ctrl+e"))
	assert.Contains(t, m.status, "Нет активного чата")

	m.messageInput.SetValue("hi")
	_, cmd := m.Update(key(keyEnter))
	runTurn(t, m, cmd)

	t.Run("Архив", func(t *testing.T) {
		_, cmd := m.Update(key("ctrl+a"))
		require.NotNil(t, cmd)
		m.Update(cmd())
		assert.Contains(t, m.status, "11/chat-42/a.json")
	})

	t.Run("Удаление не поддерживается сервером", func(t *testing.T) {
		_, cmd := m.Update(key("ctrl+d"))
		require.NotNil(t, cmd)
		m.Update(cmd())
		assert.Contains(t, m.status, "сервер не поддерживает")
		assert.Equal(t, "chat-42", m.ctrl.ActiveChatID())
	})

	t.Run("Переименование", func(t *testing.T) {
		m.Update(key("ctrl+r"))
		require.Equal(t, renameScreen, m.state)
		assert.Equal(t, "chat-42", m.renameInput.Value())

		m.renameInput.SetValue("work")
		_, cmd := m.Update(key(keyEnter))
		require.NotNil(t, cmd)
		assert.Equal(t, chatScreen, m.state)
		m.Update(cmd())
		assert.Equal(t, "work", m.ctrl.ActiveChatID())
		assert.Contains(t, m.status, "work")
	})

	t.Run("Список и открытие чата", func(t *testing.T) {
		m.ctrl.NewChat()
		_, cmd := m.Update(key("ctrl+l"))
		require.Equal(t, chatListScreen, m.state)
		m.Update(cmd())
		require.NotEmpty(t, m.chatList.Items())

		_, cmd = m.Update(key(keyEnter))
		require.NotNil(t, cmd)
		m.Update(cmd())
		assert.Equal(t, chatScreen, m.state)
		assert.Equal(t, "chat-42", m.ctrl.ActiveChatID())
		assert.Contains(t, m.transcript.View(), "echo: hi")
	})

	t.Run("Новый чат", func(t *testing.T) {
		m.Update(key("ctrl+n"))
		assert.Empty(t, m.ctrl.ActiveChatID())
		assert.Contains(t, m.transcript.View(), emptyTranscriptHint)
	})

	t.Run("Выход из учетной записи", func(t *testing.T) {
		m.Update(key("ctrl+o"))
		assert.Equal(t, loginScreen, m.state)
		assert.True(t, env.tokens.cleared)
	})
}

func TestExportCmd(t *testing.T) {
	env := newTestEnv(true)
	env.backend.messages["c1"] = []models.ChatMessageView{{Role: models.RoleUser, Message: "hi"}}
	dir := t.TempDir()

	msg := env.m.exportCmd("c1", dir)()
	require.IsType(t, exportedMsg{}, msg)

	data, err := os.ReadFile(filepath.Join(dir, "c1.json"))
	require.NoError(t, err)
	var decoded []models.ChatMessageView
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env.backend.messages["c1"], decoded)
}

func TestResetScreen(t *testing.T) {
	env := newTestEnv(false)
	m := env.m

	m.usernameInput.SetValue("alice@example.com")
	m.Update(key("ctrl+r"))
	require.Equal(t, resetScreen, m.state)
	assert.Equal(t, "alice@example.com", m.resetInputs[resetStepEmail].Value())

	_, cmd := m.Update(key(keyEnter))
	m.Update(cmd())
	require.Equal(t, resetStepCode, m.resetStep)

	m.resetInputs[resetStepCode].SetValue("123456")
	_, cmd = m.Update(key(keyEnter))
	m.Update(cmd())
	require.Equal(t, resetStepPassword, m.resetStep)

	m.resetInputs[resetStepPassword].SetValue("newpw")
	_, cmd = m.Update(key(keyEnter))
	m.Update(cmd())

	assert.Equal(t, loginScreen, m.state)
	assert.Equal(t, "alice@example.com", m.usernameInput.Value())
	assert.Equal(t, []string{
		"send:alice@example.com",
		"verify:alice@example.com:123456",
		"reset:alice@example.com",
	}, env.auth.otpCalls)
}

func TestRenderTranscript(t *testing.T) {
	upper := upperRenderer{}
	messages := []models.ChatMessageView{
		{Role: models.RoleUser, Message: "hi"},
		{Role: models.RoleAI, Message: "hello"},
	}

	out := renderTranscript(messages, nil, upper)
	assert.Contains(t, out, "hi")
	assert.Contains(t, out, "HELLO", "завершенный ответ проходит через markdown")

	out = renderTranscript(messages, &turn{user: "next", reply: "par"}, upper)
	assert.Contains(t, out, "par"+streamCursor, "поток выводится как есть")
	assert.NotContains(t, out, "PAR")

	assert.Contains(t, renderTranscript(nil, nil, upper), emptyTranscriptHint)
}

type upperRenderer struct{}

func (upperRenderer) Render(text string) string { return strings.ToUpper(text) }
func (upperRenderer) SetWidth(int)              {}

func TestGlamourRenderer(t *testing.T) {
	r := newGlamourRenderer("notty")
	r.SetWidth(60)
	out := r.Render("# Заголовок\n\nтекст")
	assert.Contains(t, out, "Заголовок")
	assert.Contains(t, out, "текст")
}

func TestWindowResize(t *testing.T) {
	env := newTestEnv(true)
	env.m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, env.m.width)
	assert.Positive(t, env.m.transcript.Height)
	assert.Less(t, env.m.transcript.Height, 40)
}
