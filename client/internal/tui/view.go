package tui

import (
	"fmt"
	"strings"
)

const (
	helpLogin  = "Enter - вход • Ctrl+S - регистрация • Tab - поле • Ctrl+R - сброс пароля • Esc - выход"
	helpChat   = "Enter - отправить • Ctrl+N - новый • Ctrl+L - чаты • Ctrl+E - экспорт • Ctrl+A - архив"
	helpChat2  = "Ctrl+R - переименовать • Ctrl+D - удалить • Ctrl+O - выйти • PgUp/PgDn - прокрутка • Esc - выход"
	helpList   = "Enter - открыть • / - фильтр • Esc - назад"
	helpRename = "Enter - сохранить • Esc - отмена"
	helpReset  = "Enter - далее • Esc - назад"
)

// View отрисовывает пользовательский интерфейс.
func (m *model) View() string {
	var content, help string
	switch m.state {
	case loginScreen:
		content, help = m.viewLoginScreen(), helpLogin
	case chatScreen:
		content, help = m.viewChatScreen(), helpChat+"\n"+helpChat2
	case chatListScreen:
		content, help = m.chatList.View(), helpList
	case renameScreen:
		content, help = m.viewRenameScreen(), helpRename
	case resetScreen:
		content, help = m.viewResetScreen(), helpReset
	}

	var footer strings.Builder
	if m.status != "" {
		footer.WriteString("\n")
		footer.WriteString(statusStyle.Render(m.status))
	}
	if m.debugMode {
		footer.WriteString("\n\n---\nОтладка:\n")
		footer.WriteString(m.debugInfo())
	}

	return fmt.Sprintf("%s\n%s%s", m.docStyle.Render(content), helpStyle.Render(help), footer.String())
}

func (m *model) viewLoginScreen() string {
	return fmt.Sprintf("%s\n\n%s\n%s\n",
		titleStyle.Render("GophChat: вход"),
		m.usernameInput.View(),
		m.passwordInput.View(),
	)
}

func (m *model) viewChatScreen() string {
	title := "Новый чат"
	if id := m.ctrl.ActiveChatID(); id != "" {
		title = "Чат " + id
	}
	if m.turnInProgress() {
		title += " • " + m.ctrl.State().String()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.transcript.View())
	b.WriteString("\n")
	if m.turnErr != "" {
		b.WriteString(errorStyle.Render("Ошибка: " + m.turnErr))
		b.WriteString("\n")
	}
	b.WriteString(focusedBoxStyle.Render(m.messageInput.View()))
	return b.String()
}

func (m *model) viewRenameScreen() string {
	return fmt.Sprintf("%s\n\n%s\n",
		titleStyle.Render("Переименовать чат "+m.ctrl.ActiveChatID()),
		m.renameInput.View(),
	)
}

func (m *model) viewResetScreen() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Сброс пароля"))
	b.WriteString("\n\n")
	for i := 0; i <= m.resetStep; i++ {
		b.WriteString(m.resetInputs[i].View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m *model) debugInfo() string {
	return fmt.Sprintf("Экран: %s\nХод: %s\nЧат: %q\nЧатов в списке: %d\nРазмер: %dx%d",
		m.state, m.ctrl.State(), m.ctrl.ActiveChatID(), len(m.chatList.Items()), m.width, m.height)
}
