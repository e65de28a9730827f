// Package repl - построчный интерфейс GophChat для терминалов без полноэкранного режима.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/maynagashev/gophchat/client/internal/api"
	"github.com/maynagashev/gophchat/client/internal/chat"
	"github.com/maynagashev/gophchat/models"
)

const (
	promptChat = "gophchat> "
	helpText   = `Команды:
  /new              новый чат
  /list             список чатов
  /open <id>        открыть чат
  /export [id]      сохранить переписку в <id>.json
  /archive [id]     выгрузить переписку в хранилище сервера
  /rename <новый>   переименовать активный чат
  /delete [id]      удалить чат
  /logout           выйти из учетной записи
  /quit             выход
Любой другой текст отправляется модели.`
)

// errQuit завершает цикл чтения.
var errQuit = errors.New("quit")

// LineReader читает строки ввода. *liner.State удовлетворяет этому интерфейсу.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// AuthClient - часть API клиента для входа, регистрации и сброса пароля.
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

// REPL - цикл "прочитать строку, выполнить, вывести результат".
type REPL struct {
	in            LineReader
	out           io.Writer
	ctrl          *chat.Controller
	auth          AuthClient
	tokens        TokenStore
	authenticated bool
	exportDir     string
}

// NewLiner создает LineReader поверх терминала.
func NewLiner() LineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return line
}

// New создает REPL. authenticated - в auth уже установлен сохраненный токен.
func New(in LineReader, out io.Writer, ctrl *chat.Controller, auth AuthClient, tokens TokenStore, authenticated bool) *REPL {
	return &REPL{
		in:            in,
		out:           out,
		ctrl:          ctrl,
		auth:          auth,
		tokens:        tokens,
		authenticated: authenticated,
		exportDir:     ".",
	}
}

// Run выполняет цикл до /quit, Ctrl+C или конца ввода.
func (r *REPL) Run(ctx context.Context) error {
	defer r.in.Close()

	for {
		if !r.authenticated {
			if err := r.authenticate(ctx); err != nil {
				return ignoreQuit(err)
			}
			continue
		}

		line, err := r.in.Prompt(promptChat)
		if err != nil {
			return ignoreQuit(r.fromPrompt(err))
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.in.AppendHistory(line)

		if err = r.execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			r.report(err)
		}
	}
}

func ignoreQuit(err error) error {
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// fromPrompt превращает конец ввода и Ctrl+C в штатный выход.
func (r *REPL) fromPrompt(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
		fmt.Fprintln(r.out)
		return errQuit
	}
	return fmt.Errorf("ошибка чтения ввода: %w", err)
}

// report выводит ошибку; при 401 сбрасывает сессию.
func (r *REPL) report(err error) {
	slog.Error("Ошибка команды", "error", err)
	switch {
	case errors.Is(err, api.ErrAuthorization):
		r.logout()
		fmt.Fprintln(r.out, "Сессия истекла, войдите снова.")
	case errors.Is(err, api.ErrNotImplementedOnServer):
		fmt.Fprintln(r.out, "Сервер не поддерживает эту операцию.")
	default:
		fmt.Fprintf(r.out, "Ошибка: %v\n", err)
	}
}

func (r *REPL) logout() {
	if err := r.tokens.Clear(); err != nil {
		slog.Warn("Не удалось удалить сохраненный токен", "error", err)
	}
	r.auth.SetAuthToken("")
	r.ctrl.NewChat()
	r.authenticated = false
}

// authenticate проводит пользователя через вход, регистрацию или сброс пароля.
func (r *REPL) authenticate(ctx context.Context) error {
	choice, err := r.in.Prompt("Вход (l), регистрация (s), сброс пароля (r), выход (q): ")
	if err != nil {
		return r.fromPrompt(err)
	}

	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "l", "login":
		return r.login(ctx)
	case "s", "signup":
		return r.signup(ctx)
	case "r", "reset":
		return r.resetPassword(ctx)
	case "q", "quit", "/quit":
		return errQuit
	default:
		return nil
	}
}

func (r *REPL) credentials() (string, string, error) {
	username, err := r.in.Prompt("Имя пользователя: ")
	if err != nil {
		return "", "", r.fromPrompt(err)
	}
	password, err := r.in.PasswordPrompt("Пароль: ")
	if err != nil {
		return "", "", r.fromPrompt(err)
	}
	return strings.TrimSpace(username), password, nil
}

func (r *REPL) login(ctx context.Context) error {
	username, password, err := r.credentials()
	if err != nil {
		return err
	}
	token, err := r.auth.Login(ctx, username, password)
	if err != nil {
		fmt.Fprintf(r.out, "Ошибка входа: %v\n", err)
		return nil
	}
	r.auth.SetAuthToken(token)
	if err = r.tokens.Save(token); err != nil {
		slog.Warn("Не удалось сохранить токен", "error", err)
	}
	r.authenticated = true
	fmt.Fprintf(r.out, "Вы вошли как %s. /help - список команд.\n", username)
	if _, err = r.ctrl.RefreshChats(ctx); err != nil {
		slog.Warn("Не удалось загрузить список чатов", "error", err)
	}
	return nil
}

func (r *REPL) signup(ctx context.Context) error {
	username, password, err := r.credentials()
	if err != nil {
		return err
	}
	if err = r.auth.Signup(ctx, username, password); err != nil {
		fmt.Fprintf(r.out, "Ошибка регистрации: %v\n", err)
		return nil
	}
	fmt.Fprintf(r.out, "Пользователь %s зарегистрирован, выполните вход.\n", username)
	return nil
}

func (r *REPL) resetPassword(ctx context.Context) error {
	email, err := r.in.Prompt("Email: ")
	if err != nil {
		return r.fromPrompt(err)
	}
	email = strings.TrimSpace(email)
	if err = r.auth.SendOTP(ctx, email); err != nil {
		fmt.Fprintf(r.out, "Ошибка отправки кода: %v\n", err)
		return nil
	}

	code, err := r.in.Prompt("Код из письма: ")
	if err != nil {
		return r.fromPrompt(err)
	}
	if err = r.auth.VerifyOTP(ctx, email, strings.TrimSpace(code)); err != nil {
		fmt.Fprintf(r.out, "Ошибка проверки кода: %v\n", err)
		return nil
	}

	password, err := r.in.PasswordPrompt("Новый пароль: ")
	if err != nil {
		return r.fromPrompt(err)
	}
	if err = r.auth.ResetPassword(ctx, email, password); err != nil {
		fmt.Fprintf(r.out, "Ошибка сброса пароля: %v\n", err)
		return nil
	}
	fmt.Fprintln(r.out, "Пароль изменен, выполните вход.")
	return nil
}

// execute выполняет команду или отправляет строку модели.
//
//nolint:gocyclo // таблица команд
func (r *REPL) execute(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		return r.send(ctx, line)
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/new":
		r.ctrl.NewChat()
		fmt.Fprintln(r.out, "Новый чат.")
	case "/list":
		return r.list(ctx)
	case "/open":
		if len(args) != 1 {
			return errors.New("использование: /open <id>")
		}
		return r.open(ctx, args[0])
	case "/export":
		return r.export(ctx, r.target(args))
	case "/archive":
		key, err := r.ctrl.Archive(ctx, r.target(args))
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Переписка выгружена: %s\n", key)
	case "/rename":
		if len(args) != 1 {
			return errors.New("использование: /rename <новый id>")
		}
		if err := r.ctrl.Rename(ctx, r.ctrl.ActiveChatID(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Чат переименован в %s.\n", args[0])
	case "/delete":
		id := r.target(args)
		if err := r.ctrl.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Чат %s удален.\n", id)
	case "/logout":
		r.logout()
		fmt.Fprintln(r.out, "Вы вышли из учетной записи.")
	default:
		return fmt.Errorf("неизвестная команда %s, /help - список команд", cmd)
	}
	return nil
}

// target возвращает id из аргументов или активный чат.
func (r *REPL) target(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return r.ctrl.ActiveChatID()
}

func (r *REPL) send(ctx context.Context, message string) error {
	_, err := r.ctrl.Send(ctx, message, func(chunk []byte) {
		_, _ = r.out.Write(chunk)
	})
	fmt.Fprintln(r.out)
	return err
}

func (r *REPL) list(ctx context.Context) error {
	chats, err := r.ctrl.RefreshChats(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Fprintln(r.out, "Чатов пока нет.")
		return nil
	}
	active := r.ctrl.ActiveChatID()
	for _, id := range chats {
		marker := "  "
		if id == active {
			marker = "* "
		}
		fmt.Fprintln(r.out, marker+id)
	}
	return nil
}

func (r *REPL) open(ctx context.Context, chatID string) error {
	messages, err := r.ctrl.Open(ctx, chatID)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		label := "Вы"
		if msg.Role == models.RoleAI {
			label = "GophChat"
		}
		fmt.Fprintf(r.out, "%s: %s\n", label, msg.Message)
	}
	fmt.Fprintf(r.out, "Открыт чат %s.\n", chatID)
	return nil
}

func (r *REPL) export(ctx context.Context, chatID string) error {
	if chatID == "" {
		return chat.ErrEmptyChatID
	}
	path := filepath.Join(r.exportDir, filepath.Base(chatID)+".json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания файла экспорта: %w", err)
	}
	defer f.Close()

	if err = r.ctrl.Export(ctx, chatID, f); err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Fprintf(r.out, "Переписка сохранена в %s.\n", path)
	return nil
}
