// Package tui - терминальный интерфейс GophChat на bubbletea.
package tui

import (
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/gophchat/client/internal/chat"
)

// Options - зависимости терминального интерфейса.
type Options struct {
	Controller *chat.Controller
	Auth       AuthClient
	Tokens     TokenStore
	// Authenticated - в Auth уже установлен сохраненный токен.
	Authenticated bool
	// MarkdownStyle - стиль glamour ("auto", "dark", "light", "notty").
	MarkdownStyle string
	Debug         bool
}

// Start запускает TUI и блокируется до выхода пользователя.
func Start(opts Options) error {
	if opts.Controller == nil || opts.Auth == nil || opts.Tokens == nil {
		return errors.New("tui: не заданы обязательные зависимости")
	}
	style := opts.MarkdownStyle
	if style == "" {
		style = "auto"
	}

	m := initModel(opts.Controller, opts.Auth, opts.Tokens, newGlamourRenderer(style), opts.Authenticated, opts.Debug)
	slog.Info("Запуск TUI", "screen", m.state.String())

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("Ошибка при работе TUI", "error", err)
		return fmt.Errorf("ошибка TUI: %w", err)
	}
	return nil
}
