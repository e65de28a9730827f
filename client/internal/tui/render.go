package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/maynagashev/gophchat/models"
)

const (
	emptyTranscriptHint = "Начните разговор: введите сообщение и нажмите Enter."
	streamCursor        = "▌"
)

var (
	userLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	aiLabelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	focusedBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("212"))
)

// markdownRenderer превращает завершенный ответ модели в текст для терминала.
type markdownRenderer interface {
	Render(text string) string
	SetWidth(width int)
}

// glamourRenderer рендерит markdown через glamour; при ошибке отдает исходный текст.
type glamourRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newGlamourRenderer(style string) *glamourRenderer {
	return &glamourRenderer{style: style, width: defaultWidth}
}

func (g *glamourRenderer) SetWidth(width int) {
	if width != g.width {
		g.width = width
		g.renderer = nil
	}
}

func (g *glamourRenderer) Render(text string) string {
	if g.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(g.style),
			glamour.WithWordWrap(g.width),
		)
		if err != nil {
			return text
		}
		g.renderer = r
	}
	out, err := g.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// plainRenderer оставляет текст как есть (режим без оформления и тесты).
type plainRenderer struct{}

func (plainRenderer) Render(text string) string { return text }
func (plainRenderer) SetWidth(int)              {}

// turn - незавершенный ход: сообщение пользователя и ответ, полученный к этому моменту.
type turn struct {
	user  string
	reply string
}

// renderTranscript собирает текст переписки. Завершенные ответы модели проходят через md,
// поток текущего хода выводится как есть.
func renderTranscript(messages []models.ChatMessageView, partial *turn, md markdownRenderer) string {
	if len(messages) == 0 && partial == nil {
		return statusStyle.Render(emptyTranscriptHint)
	}

	var b strings.Builder
	for _, msg := range messages {
		if msg.Role == models.RoleAI {
			writeEntry(&b, aiLabelStyle.Render("GophChat:"), md.Render(msg.Message))
			continue
		}
		writeEntry(&b, userLabelStyle.Render("Вы:"), msg.Message)
	}
	if partial != nil {
		writeEntry(&b, userLabelStyle.Render("Вы:"), partial.user)
		writeEntry(&b, aiLabelStyle.Render("GophChat:"), partial.reply+streamCursor)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeEntry(b *strings.Builder, label, text string) {
	b.WriteString(label)
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n\n")
}
