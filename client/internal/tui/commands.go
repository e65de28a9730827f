package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/gophchat/models"
)

const (
	statusMessageTimeout = 4 * time.Second
	requestTimeout       = 30 * time.Second
	chunkBuffer          = 64
)

// --- Сообщения --- //

type loginSuccessMsg struct {
	token string
}

type signupSuccessMsg struct {
	username string
}

type chunkMsg struct {
	data []byte
}

type turnDoneMsg struct {
	reply string
	err   error
}

type chatsLoadedMsg struct {
	chats []string
}

type chatOpenedMsg struct {
	chatID   string
	messages []models.ChatMessageView
}

type exportedMsg struct {
	path string
}

type archivedMsg struct {
	key string
}

type renamedMsg struct {
	newID string
}

type deletedMsg struct {
	chatID string
}

type otpSentMsg struct{}

type otpVerifiedMsg struct{}

type passwordResetMsg struct{}

type errMsg struct {
	op  string
	err error
}

type clearStatusMsg struct{}

// clearStatusCmd отправляет clearStatusMsg через delay.
func clearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// --- Вход и регистрация --- //

func (m *model) makeLoginCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		token, err := m.auth.Login(ctx, username, password)
		if err != nil {
			return errMsg{op: "Вход", err: err}
		}
		return loginSuccessMsg{token: token}
	}
}

func (m *model) makeSignupCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		if err := m.auth.Signup(ctx, username, password); err != nil {
			return errMsg{op: "Регистрация", err: err}
		}
		return signupSuccessMsg{username: username}
	}
}

// --- Ход переписки --- //

// startTurnCmd запускает Send в отдельной горутине. Фрагменты ответа и итог хода
// приходят через канал, который читает waitForChunk.
func (m *model) startTurnCmd(message string) tea.Cmd {
	ch := make(chan tea.Msg, chunkBuffer)
	m.chunks = ch
	ctrl := m.ctrl
	go func() {
		defer close(ch)
		// Отмены чтения потока нет: ход завершается, когда сервер закрывает ответ.
		reply, err := ctrl.Send(context.Background(), message, func(data []byte) {
			ch <- chunkMsg{data: data}
		})
		ch <- turnDoneMsg{reply: reply, err: err}
	}()
	return waitForChunk(ch)
}

// waitForChunk ждет следующее сообщение хода.
func waitForChunk(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// --- Операции с чатами --- //

func (m *model) refreshChatsCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		chats, err := ctrl.RefreshChats(ctx)
		if err != nil {
			return errMsg{op: "Список чатов", err: err}
		}
		return chatsLoadedMsg{chats: chats}
	}
}

func (m *model) openChatCmd(chatID string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		messages, err := ctrl.Open(ctx, chatID)
		if err != nil {
			return errMsg{op: "Открытие чата", err: err}
		}
		return chatOpenedMsg{chatID: chatID, messages: messages}
	}
}

// exportCmd сохраняет переписку в <dir>/<chat_id>.json.
func (m *model) exportCmd(chatID, dir string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		path := filepath.Join(dir, filepath.Base(chatID)+".json")
		f, err := os.Create(path)
		if err != nil {
			return errMsg{op: "Экспорт", err: err}
		}
		defer f.Close()

		ctx, cancel := withTimeout()
		defer cancel()
		if err = ctrl.Export(ctx, chatID, f); err != nil {
			_ = os.Remove(path)
			return errMsg{op: "Экспорт", err: err}
		}
		slog.Info("Переписка экспортирована", "chat_id", chatID, "path", path)
		return exportedMsg{path: path}
	}
}

func (m *model) archiveCmd(chatID string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		key, err := ctrl.Archive(ctx, chatID)
		if err != nil {
			return errMsg{op: "Архив", err: err}
		}
		return archivedMsg{key: key}
	}
}

func (m *model) renameCmd(oldID, newID string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		if err := ctrl.Rename(ctx, oldID, newID); err != nil {
			return errMsg{op: "Переименование", err: err}
		}
		return renamedMsg{newID: newID}
	}
}

func (m *model) deleteCmd(chatID string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		if err := ctrl.Delete(ctx, chatID); err != nil {
			return errMsg{op: "Удаление", err: err}
		}
		return deletedMsg{chatID: chatID}
	}
}

// --- Сброс пароля --- //

func (m *model) sendOTPCmd(email string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		if err := m.auth.SendOTP(ctx, email); err != nil {
			return errMsg{op: "Отправка кода", err: err}
		}
		return otpSentMsg{}
	}
}

func (m *model) verifyOTPCmd(email, code string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		if err := m.auth.VerifyOTP(ctx, email, code); err != nil {
			return errMsg{op: "Проверка кода", err: err}
		}
		return otpVerifiedMsg{}
	}
}

func (m *model) resetPasswordCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		if err := m.auth.ResetPassword(ctx, email, password); err != nil {
			return errMsg{op: "Сброс пароля", err: err}
		}
		return passwordResetMsg{}
	}
}

// setStatus показывает сообщение внизу экрана и планирует его очистку.
func (m *model) setStatus(format string, args ...any) tea.Cmd {
	m.status = fmt.Sprintf(format, args...)
	return clearStatusCmd(statusMessageTimeout)
}
