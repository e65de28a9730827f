package tui

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/gophchat/client/internal/api"
)

// Init - команда, выполняемая при запуске приложения.
func (m *model) Init() tea.Cmd {
	if m.state == chatScreen {
		return tea.Batch(textinput.Blink, m.refreshChatsCmd())
	}
	return textinput.Blink
}

// Update обрабатывает входящие сообщения.
//
//nolint:gocyclo // плоский роутинг сообщений
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case clearStatusMsg:
		m.status = ""
		return m, nil

	case errMsg:
		return m.handleError(msg)

	case loginSuccessMsg:
		m.auth.SetAuthToken(msg.token)
		if err := m.tokens.Save(msg.token); err != nil {
			slog.Warn("Не удалось сохранить токен", "error", err)
		}
		m.enterChatScreen()
		return m, tea.Batch(m.setStatus("Вход выполнен"), m.refreshChatsCmd())

	case signupSuccessMsg:
		return m, m.setStatus("Пользователь %s зарегистрирован, выполните вход", msg.username)

	case chunkMsg:
		m.streaming.Write(msg.data)
		m.refreshTranscript()
		return m, waitForChunk(m.chunks)

	case turnDoneMsg:
		return m.handleTurnDone(msg)

	case chatsLoadedMsg:
		return m, m.setChats(msg.chats)

	case chatOpenedMsg:
		m.turnErr = ""
		m.enterChatScreen()
		return m, m.setStatus("Открыт чат %s", msg.chatID)

	case exportedMsg:
		return m, m.setStatus("Переписка сохранена в %s", msg.path)

	case archivedMsg:
		return m, m.setStatus("Переписка выгружена: %s", msg.key)

	case renamedMsg:
		m.enterChatScreen()
		return m, tea.Batch(m.setChats(m.ctrl.Chats()), m.setStatus("Чат переименован в %s", msg.newID))

	case deletedMsg:
		m.refreshTranscript()
		return m, tea.Batch(m.setChats(m.ctrl.Chats()), m.setStatus("Чат %s удален", msg.chatID))

	case otpSentMsg:
		return m.advanceReset("Код отправлен на почту")

	case otpVerifiedMsg:
		return m.advanceReset("Код подтвержден, введите новый пароль")

	case passwordResetMsg:
		m.enterLoginScreen()
		m.usernameInput.SetValue(m.resetInputs[resetStepEmail].Value())
		return m, m.setStatus("Пароль изменен, выполните вход")

	case tea.KeyMsg:
		if msg.String() == keyCtrlC {
			return m, tea.Quit
		}
		switch m.state {
		case loginScreen:
			return m.updateLoginScreen(msg)
		case chatScreen:
			return m.updateChatScreen(msg)
		case chatListScreen:
			return m.updateChatListScreen(msg)
		case renameScreen:
			return m.updateRenameScreen(msg)
		case resetScreen:
			return m.updateResetScreen(msg)
		}
	}

	return m.updateFocused(msg)
}

// updateFocused передает прочие сообщения (мигание курсора и т.п.) активному компоненту.
func (m *model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case loginScreen:
		if m.loginFocus == 0 {
			m.usernameInput, cmd = m.usernameInput.Update(msg)
		} else {
			m.passwordInput, cmd = m.passwordInput.Update(msg)
		}
	case chatScreen:
		m.messageInput, cmd = m.messageInput.Update(msg)
	case chatListScreen:
		m.chatList, cmd = m.chatList.Update(msg)
	case renameScreen:
		m.renameInput, cmd = m.renameInput.Update(msg)
	case resetScreen:
		m.resetInputs[m.resetStep], cmd = m.resetInputs[m.resetStep].Update(msg)
	}
	return m, cmd
}

// handleError показывает ошибку. 401 означает, что токен больше не действует.
func (m *model) handleError(msg errMsg) (tea.Model, tea.Cmd) {
	slog.Error("Ошибка операции", "op", msg.op, "error", msg.err)
	if errors.Is(msg.err, api.ErrAuthorization) && m.state != loginScreen && m.state != resetScreen {
		m.logout()
		return m, m.setStatus("Сессия истекла, войдите снова")
	}
	if errors.Is(msg.err, api.ErrNotImplementedOnServer) {
		return m, m.setStatus("%s: сервер не поддерживает эту операцию", msg.op)
	}
	return m, m.setStatus("%s: %v", msg.op, msg.err)
}

func (m *model) logout() {
	if err := m.tokens.Clear(); err != nil {
		slog.Warn("Не удалось удалить сохраненный токен", "error", err)
	}
	m.auth.SetAuthToken("")
	m.ctrl.NewChat()
	m.enterLoginScreen()
}

func (m *model) handleTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	m.chunks = nil
	m.streaming.Reset()
	m.pending = ""
	if msg.err != nil {
		slog.Error("Ход не завершен", "error", msg.err)
		if errors.Is(msg.err, api.ErrAuthorization) {
			m.logout()
			return m, m.setStatus("Сессия истекла, войдите снова")
		}
		m.turnErr = msg.err.Error()
		m.refreshTranscript()
		return m, nil
	}
	m.refreshTranscript()
	return m, m.setChats(m.ctrl.Chats())
}

// --- Экран входа --- //

func (m *model) updateLoginScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		return m, tea.Quit
	case keyTab, keyShiftTab, "up", "down":
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.usernameInput.Focus()
			m.passwordInput.Blur()
		} else {
			m.usernameInput.Blur()
			m.passwordInput.Focus()
		}
		return m, textinput.Blink
	case keyEnter, "ctrl+s":
		username := strings.TrimSpace(m.usernameInput.Value())
		password := m.passwordInput.Value()
		if username == "" || password == "" {
			return m, m.setStatus("Введите имя пользователя и пароль")
		}
		if msg.String() == "ctrl+s" {
			return m, tea.Batch(m.makeSignupCmd(username, password), m.setStatus("Регистрация..."))
		}
		return m, tea.Batch(m.makeLoginCmd(username, password), m.setStatus("Выполняется вход..."))
	case "ctrl+r":
		m.enterResetScreen()
		return m, textinput.Blink
	}
	return m.updateFocused(msg)
}

// --- Экран переписки --- //

//nolint:gocyclo // таблица горячих клавиш
func (m *model) updateChatScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		return m, tea.Quit
	case keyEnter:
		text := strings.TrimSpace(m.messageInput.Value())
		if text == "" || m.turnInProgress() {
			return m, nil
		}
		m.messageInput.SetValue("")
		m.turnErr = ""
		m.pending = text
		cmd := m.startTurnCmd(text)
		m.refreshTranscript()
		return m, cmd
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	if m.turnInProgress() {
		return m.updateFocused(msg)
	}

	chatID := m.ctrl.ActiveChatID()
	switch msg.String() {
	case "ctrl+n":
		m.ctrl.NewChat()
		m.turnErr = ""
		m.refreshTranscript()
		return m, m.setStatus("Новый чат")
	case "ctrl+l":
		m.state = chatListScreen
		m.messageInput.Blur()
		return m, m.refreshChatsCmd()
	case "ctrl+e":
		if chatID == "" {
			return m, m.setStatus("Нет активного чата")
		}
		return m, m.exportCmd(chatID, ".")
	case "ctrl+a":
		if chatID == "" {
			return m, m.setStatus("Нет активного чата")
		}
		return m, m.archiveCmd(chatID)
	case "ctrl+r":
		if chatID == "" {
			return m, m.setStatus("Нет активного чата")
		}
		m.state = renameScreen
		m.messageInput.Blur()
		m.renameInput.SetValue(chatID)
		m.renameInput.Focus()
		return m, textinput.Blink
	case "ctrl+d":
		if chatID == "" {
			return m, m.setStatus("Нет активного чата")
		}
		return m, m.deleteCmd(chatID)
	case "ctrl+o":
		m.logout()
		return m, m.setStatus("Вы вышли из учетной записи")
	}
	return m.updateFocused(msg)
}

// --- Экран списка чатов --- //

func (m *model) updateChatListScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chatList.FilterState() == list.Filtering {
		return m.updateFocused(msg)
	}
	switch msg.String() {
	case keyEsc, "q":
		m.enterChatScreen()
		return m, nil
	case keyEnter:
		item, ok := m.chatList.SelectedItem().(chatItem)
		if !ok {
			return m, nil
		}
		return m, m.openChatCmd(string(item))
	}
	return m.updateFocused(msg)
}

// --- Экран переименования --- //

func (m *model) updateRenameScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		m.renameInput.Blur()
		m.enterChatScreen()
		return m, nil
	case keyEnter:
		newID := strings.TrimSpace(m.renameInput.Value())
		oldID := m.ctrl.ActiveChatID()
		if newID == "" || newID == oldID {
			return m, nil
		}
		m.renameInput.Blur()
		m.enterChatScreen()
		return m, m.renameCmd(oldID, newID)
	}
	return m.updateFocused(msg)
}

// --- Экран сброса пароля --- //

func (m *model) updateResetScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		m.enterLoginScreen()
		return m, nil
	case keyEnter:
		email := strings.TrimSpace(m.resetInputs[resetStepEmail].Value())
		value := strings.TrimSpace(m.resetInputs[m.resetStep].Value())
		if value == "" {
			return m, nil
		}
		switch m.resetStep {
		case resetStepEmail:
			return m, m.sendOTPCmd(email)
		case resetStepCode:
			return m, m.verifyOTPCmd(email, value)
		case resetStepPassword:
			return m, m.resetPasswordCmd(email, m.resetInputs[resetStepPassword].Value())
		}
	}
	return m.updateFocused(msg)
}

// advanceReset переводит сброс пароля к следующему полю.
func (m *model) advanceReset(status string) (tea.Model, tea.Cmd) {
	if m.state != resetScreen || m.resetStep >= resetStepPassword {
		return m, nil
	}
	m.resetInputs[m.resetStep].Blur()
	m.resetStep++
	m.resetInputs[m.resetStep].Focus()
	return m, tea.Batch(textinput.Blink, m.setStatus("%s", status))
}
