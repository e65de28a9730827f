// Package chat управляет ходом переписки на стороне клиента:
// отправляет сообщение, отдает поток ответа интерфейсу, сохраняет обе стороны хода
// и обновляет список чатов.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maynagashev/gophchat/models"
)

const (
	chatIDPrefix  = "chat-"
	readChunkSize = 4096
)

var (
	// ErrEmptyMessage возвращается при попытке отправить пустое сообщение.
	ErrEmptyMessage = errors.New("сообщение не может быть пустым")
	// ErrTurnInProgress возвращается, если предыдущий ход еще не завершен.
	ErrTurnInProgress = errors.New("предыдущий ответ еще не получен")
	// ErrEmptyChatID возвращается для операций без идентификатора чата.
	ErrEmptyChatID = errors.New("не указан идентификатор чата")
)

// State - фаза текущего хода.
type State int

const (
	StateIdle             State = iota // ожидание ввода
	StateAwaitingResponse              // запрос отправлен, данных еще нет
	StateRendering                     // байты ответа поступают
	StateSettled                       // поток закрыт, обе стороны сохранены
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateRendering:
		return "rendering"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Backend - часть API клиента, которой пользуется контроллер.
type Backend interface {
	Chat(ctx context.Context, message string) (io.ReadCloser, error)
	SaveMessage(ctx context.Context, chatID string, role models.Role, message string) error
	ListChats(ctx context.Context) ([]string, error)
	GetMessages(ctx context.Context, chatID string) ([]models.ChatMessageView, error)
	ArchiveChat(ctx context.Context, chatID string) (string, error)
	RenameChat(ctx context.Context, oldID, newID string) error
	DeleteChat(ctx context.Context, chatID string) error
}

// Controller хранит активный чат, его переписку и список чатов пользователя.
// Методы безопасны для вызова из разных горутин; поток ответа читается без удержания мьютекса.
type Controller struct {
	mu         sync.Mutex
	backend    Backend
	now        func() time.Time
	state      State
	chatID     string
	chats      []string
	transcript []models.ChatMessageView
}

// NewController создает контроллер поверх API клиента.
func NewController(backend Backend) *Controller {
	return &Controller{
		backend: backend,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени для генерации идентификаторов чатов.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// State возвращает фазу текущего хода.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveChatID возвращает идентификатор активного чата или пустую строку.
func (c *Controller) ActiveChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// Chats возвращает последний загруженный список чатов.
func (c *Controller) Chats() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.chats)
}

// Transcript возвращает переписку активного чата.
func (c *Controller) Transcript() []models.ChatMessageView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.transcript)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// fail переводит контроллер в idle и возвращает err.
func (c *Controller) fail(err error) error {
	c.setState(StateIdle)
	return err
}

// Send выполняет один ход: отправляет message модели, отдает каждый фрагмент ответа
// в onChunk, сохраняет сообщение пользователя, затем ответ модели и обновляет список чатов.
// Если активного чата нет, идентификатор создается из текущего времени.
// При любой ошибке контроллер возвращается в idle; повторов нет.
func (c *Controller) Send(ctx context.Context, message string, onChunk func([]byte)) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == StateAwaitingResponse || c.state == StateRendering {
		c.mu.Unlock()
		return "", ErrTurnInProgress
	}
	if c.chatID == "" {
		c.chatID = fmt.Sprintf("%s%d", chatIDPrefix, c.now().UnixMilli())
		c.transcript = nil
		slog.Info("Создан новый чат", "chat_id", c.chatID)
	}
	chatID := c.chatID
	c.state = StateAwaitingResponse
	c.mu.Unlock()

	body, err := c.backend.Chat(ctx, message)
	if err != nil {
		slog.Error("Ошибка запроса ответа модели", "chat_id", chatID, "error", err)
		return "", c.fail(err)
	}

	reply, err := c.readStream(body, onChunk)
	if err != nil {
		slog.Error("Поток ответа прерван", "chat_id", chatID, "error", err)
		return "", c.fail(err)
	}
	reply = strings.TrimSpace(reply)

	if err = c.backend.SaveMessage(ctx, chatID, models.RoleUser, message); err != nil {
		slog.Error("Ошибка сохранения сообщения пользователя", "chat_id", chatID, "error", err)
		return reply, c.fail(err)
	}
	if err = c.backend.SaveMessage(ctx, chatID, models.RoleAI, reply); err != nil {
		slog.Error("Ошибка сохранения ответа модели", "chat_id", chatID, "error", err)
		return reply, c.fail(err)
	}

	c.mu.Lock()
	if c.chatID == chatID {
		c.transcript = append(c.transcript,
			models.ChatMessageView{Role: models.RoleUser, Message: message},
			models.ChatMessageView{Role: models.RoleAI, Message: reply},
		)
	}
	c.state = StateSettled
	c.mu.Unlock()

	if _, err = c.RefreshChats(ctx); err != nil {
		slog.Warn("Не удалось обновить список чатов", "error", err)
	}
	return reply, nil
}

// readStream читает тело ответа до конца, переключая состояние в rendering на первом байте.
func (c *Controller) readStream(body io.ReadCloser, onChunk func([]byte)) (string, error) {
	defer body.Close()

	var reply strings.Builder
	buf := make([]byte, readChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if reply.Len() == 0 {
				c.setState(StateRendering)
			}
			reply.Write(buf[:n])
			if onChunk != nil {
				onChunk(slices.Clone(buf[:n]))
			}
		}
		if errors.Is(err, io.EOF) {
			return reply.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("ошибка чтения потока ответа: %w", err)
		}
	}
}

// NewChat сбрасывает активный чат; следующий Send создаст новый идентификатор.
func (c *Controller) NewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatID = ""
	c.transcript = nil
	c.state = StateIdle
}

// Open загружает переписку чата и делает его активным.
func (c *Controller) Open(ctx context.Context, chatID string) ([]models.ChatMessageView, error) {
	if chatID == "" {
		return nil, ErrEmptyChatID
	}
	messages, err := c.backend.GetMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatID = chatID
	c.transcript = slices.Clone(messages)
	c.state = StateIdle
	return messages, nil
}

// RefreshChats перечитывает список чатов с сервера.
func (c *Controller) RefreshChats(ctx context.Context) ([]string, error) {
	chats, err := c.backend.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.chats = slices.Clone(chats)
	c.mu.Unlock()
	return chats, nil
}

// Export пишет переписку чата в w как JSON с отступами.
func (c *Controller) Export(ctx context.Context, chatID string, w io.Writer) error {
	if chatID == "" {
		return ErrEmptyChatID
	}
	messages, err := c.backend.GetMessages(ctx, chatID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка кодирования переписки: %w", err)
	}
	if _, err = w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("ошибка записи переписки: %w", err)
	}
	return nil
}

// Archive просит сервер выгрузить переписку в объектное хранилище и возвращает ключ объекта.
func (c *Controller) Archive(ctx context.Context, chatID string) (string, error) {
	if chatID == "" {
		return "", ErrEmptyChatID
	}
	return c.backend.ArchiveChat(ctx, chatID)
}

// Rename переименовывает чат. Локальный список меняется только после ответа сервера.
func (c *Controller) Rename(ctx context.Context, oldID, newID string) error {
	newID = strings.TrimSpace(newID)
	if oldID == "" || newID == "" {
		return ErrEmptyChatID
	}
	if err := c.backend.RenameChat(ctx, oldID, newID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, id := range c.chats {
		if id == oldID {
			c.chats[i] = newID
		}
	}
	if c.chatID == oldID {
		c.chatID = newID
	}
	return nil
}

// Delete удаляет чат. Если он был активным, контроллер переходит к новому чату.
func (c *Controller) Delete(ctx context.Context, chatID string) error {
	if chatID == "" {
		return ErrEmptyChatID
	}
	if err := c.backend.DeleteChat(ctx, chatID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.chats = slices.DeleteFunc(c.chats, func(id string) bool { return id == chatID })
	if c.chatID == chatID {
		c.chatID = ""
		c.transcript = nil
		c.state = StateIdle
	}
	return nil
}
