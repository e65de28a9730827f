package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maynagashev/gophchat/client/internal/chat"
)

// Состояния (экраны) приложения.
type screenState int

const (
	loginScreen    screenState = iota // Вход и регистрация
	chatScreen                        // Переписка с моделью
	chatListScreen                    // Выбор чата
	renameScreen                      // Ввод нового имени чата
	resetScreen                       // Сброс пароля по одноразовому коду
)

func (s screenState) String() string {
	switch s {
	case loginScreen:
		return "login"
	case chatScreen:
		return "chat"
	case chatListScreen:
		return "chat-list"
	case renameScreen:
		return "rename"
	case resetScreen:
		return "reset"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// Шаги сброса пароля.
const (
	resetStepEmail = iota
	resetStepCode
	resetStepPassword
	numResetSteps
)

const (
	keyEnter    = "enter"
	keyEsc      = "esc"
	keyTab      = "tab"
	keyShiftTab = "shift+tab"
	keyCtrlC    = "ctrl+c"

	inputCharLimit   = 256
	messageCharLimit = 8192
	inputWidth       = 40
	defaultWidth     = 80
	defaultHeight    = 24
	chromeHeight     = 6 // заголовок, поле ввода, подсказка и статус
)

// AuthClient - часть API клиента, нужная экранам входа и сброса пароля.
type AuthClient interface {
	Signup(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	SetAuthToken(token string)
}

// TokenStore хранит токен между запусками.
type TokenStore interface {
	Save(token string) error
	Clear() error
}

// chatItem - элемент списка чатов.
type chatItem string

func (i chatItem) Title() string       { return string(i) }
func (i chatItem) Description() string { return "" }
func (i chatItem) FilterValue() string { return string(i) }

// model представляет состояние TUI приложения.
type model struct {
	state     screenState
	ctrl      *chat.Controller
	auth      AuthClient
	tokens    TokenStore
	debugMode bool

	usernameInput textinput.Model
	passwordInput textinput.Model
	loginFocus    int

	messageInput textinput.Model
	renameInput  textinput.Model
	resetInputs  [numResetSteps]textinput.Model
	resetStep    int

	chatList   list.Model
	transcript viewport.Model
	markdown   markdownRenderer

	chunks    chan tea.Msg    // поток текущего хода, nil если хода нет
	streaming strings.Builder // ответ модели, полученный к этому моменту
	pending   string          // сообщение пользователя текущего хода
	turnErr   string          // ошибка последнего хода, видна до следующей отправки

	status   string
	width    int
	height   int
	docStyle lipgloss.Style
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = inputWidth
	return ti
}

func newPasswordInput(placeholder string) textinput.Model {
	ti := newInput(placeholder, inputCharLimit)
	ti.EchoMode = textinput.EchoPassword
	return ti
}

func initChatList() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), defaultWidth, defaultHeight)
	l.Title = "Чаты"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = list.DefaultStyles().Title.Bold(true)
	return l
}

// initModel собирает модель. authenticated - найден ли сохраненный токен.
func initModel(
	ctrl *chat.Controller,
	auth AuthClient,
	tokens TokenStore,
	markdown markdownRenderer,
	authenticated bool,
	debugMode bool,
) *model {
	m := &model{
		ctrl:          ctrl,
		auth:          auth,
		tokens:        tokens,
		debugMode:     debugMode,
		usernameInput: newInput("Имя пользователя", inputCharLimit),
		passwordInput: newPasswordInput("Пароль"),
		messageInput:  newInput("Сообщение", messageCharLimit),
		renameInput:   newInput("Новый идентификатор чата", inputCharLimit),
		resetInputs: [numResetSteps]textinput.Model{
			newInput("Email", inputCharLimit),
			newInput("Код из письма", inputCharLimit),
			newPasswordInput("Новый пароль"),
		},
		chatList:   initChatList(),
		transcript: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		markdown:   markdown,
		width:      defaultWidth,
		height:     defaultHeight,
		docStyle:   lipgloss.NewStyle().Margin(0, 1),
	}
	if authenticated {
		m.enterChatScreen()
	} else {
		m.enterLoginScreen()
	}
	return m
}

func (m *model) enterLoginScreen() {
	m.state = loginScreen
	m.loginFocus = 0
	m.passwordInput.SetValue("")
	m.usernameInput.Focus()
	m.passwordInput.Blur()
	m.messageInput.Blur()
}

func (m *model) enterChatScreen() {
	m.state = chatScreen
	m.usernameInput.Blur()
	m.passwordInput.Blur()
	m.messageInput.Focus()
	m.refreshTranscript()
}

func (m *model) enterResetScreen() {
	m.state = resetScreen
	m.resetStep = resetStepEmail
	for i := range m.resetInputs {
		m.resetInputs[i].SetValue("")
		m.resetInputs[i].Blur()
	}
	m.resetInputs[resetStepEmail].SetValue(m.usernameInput.Value())
	m.resetInputs[resetStepEmail].Focus()
}

// turnInProgress сообщает, читается ли сейчас поток ответа.
func (m *model) turnInProgress() bool {
	return m.chunks != nil
}

// refreshTranscript перерисовывает переписку в viewport и прокручивает ее вниз.
func (m *model) refreshTranscript() {
	var partial *turn
	if m.turnInProgress() {
		partial = &turn{user: m.pending, reply: m.streaming.String()}
	}
	m.transcript.SetContent(renderTranscript(m.ctrl.Transcript(), partial, m.markdown))
	m.transcript.GotoBottom()
}

// setChats обновляет список чатов, не теряя выделение.
func (m *model) setChats(chats []string) tea.Cmd {
	items := make([]list.Item, 0, len(chats))
	for _, id := range chats {
		items = append(items, chatItem(id))
	}
	return m.chatList.SetItems(items)
}

func (m *model) resize(width, height int) {
	m.width, m.height = width, height
	h, v := m.docStyle.GetFrameSize()
	innerWidth := max(width-h, 1)
	innerHeight := max(height-v-chromeHeight, 1)

	m.transcript.Width = innerWidth
	m.transcript.Height = innerHeight
	m.chatList.SetSize(innerWidth, innerHeight)
	m.messageInput.Width = max(innerWidth-2, 1)
	m.markdown.SetWidth(innerWidth)
	m.refreshTranscript()
}
