package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/models"
)

// ChatRepository определяет методы для работы с журналом сообщений чатов.
type ChatRepository interface {
	// AppendMessage добавляет сообщение в чат пользователя. Если chat_id уже
	// принадлежит другому пользователю, возвращает ErrChatOwnedByOther.
	AppendMessage(ctx context.Context, msg *models.ChatMessage) (int64, error)
	// ListChatIDs возвращает идентификаторы чатов пользователя, начиная с самого свежего.
	ListChatIDs(ctx context.Context, userID int64) ([]string, error)
	// GetMessages возвращает сообщения чата в порядке добавления.
	GetMessages(ctx context.Context, userID int64, chatID string) ([]models.ChatMessage, error)
}

type sqlChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository создает новый экземпляр репозитория чатов.
func NewChatRepository(db *sqlx.DB) ChatRepository {
	return &sqlChatRepository{db: db}
}

// AppendMessage вставляет строку только если чат пуст или уже принадлежит userID.
// Проверка и вставка выполняются одним запросом.
func (r *sqlChatRepository) AppendMessage(ctx context.Context, msg *models.ChatMessage) (int64, error) {
	query := r.db.Rebind(`INSERT INTO chat_messages (user_id, chat_id, role, message)
SELECT ?, ?, ?, ?
WHERE NOT EXISTS (SELECT 1 FROM chat_messages WHERE chat_id = ? AND user_id <> ?)
RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		msg.UserID, msg.ChatID, string(msg.Role), msg.Message,
		msg.ChatID, msg.UserID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Warnf("[ChatRepo] Чат '%s' принадлежит другому пользователю (запрос от %d)", msg.ChatID, msg.UserID)
			return 0, ErrChatOwnedByOther
		}
		zap.S().Errorf("[ChatRepo] Ошибка сохранения сообщения в чат '%s': %v", msg.ChatID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на сохранение сообщения: %w", err)
	}

	zap.S().Debugf("[ChatRepo] Сообщение %d (%s) сохранено в чат '%s'", id, msg.Role, msg.ChatID)
	return id, nil
}

// ListChatIDs группирует сообщения пользователя по chat_id.
func (r *sqlChatRepository) ListChatIDs(ctx context.Context, userID int64) ([]string, error) {
	query := r.db.Rebind(`SELECT chat_id FROM chat_messages WHERE user_id = ?
GROUP BY chat_id ORDER BY MAX(created_at) DESC, MAX(id) DESC`)

	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		zap.S().Errorf("[ChatRepo] Ошибка получения списка чатов пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка чатов: %w", err)
	}
	return ids, nil
}

// GetMessages фильтрует и по chat_id, и по user_id: чужой чат выглядит как пустой.
func (r *sqlChatRepository) GetMessages(ctx context.Context, userID int64, chatID string) ([]models.ChatMessage, error) {
	query := r.db.Rebind(`SELECT id, user_id, chat_id, role, message, created_at FROM chat_messages
WHERE user_id = ? AND chat_id = ? ORDER BY created_at ASC, id ASC`)

	messages := []models.ChatMessage{}
	if err := r.db.SelectContext(ctx, &messages, query, userID, chatID); err != nil {
		zap.S().Errorf("[ChatRepo] Ошибка получения сообщений чата '%s': %v", chatID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение сообщений: %w", err)
	}
	return messages, nil
}

// ErrChatOwnedByOther - chat_id уже занят другим пользователем.
var ErrChatOwnedByOther = errors.New("чат принадлежит другому пользователю")
