package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/models"
	"github.com/maynagashev/gophchat/server/internal/repository"
	"github.com/maynagashev/gophchat/server/internal/storage"
)

// TranscriptService управляет историей чатов пользователя.
type TranscriptService interface {
	AppendMessage(ctx context.Context, userID int64, chatID string, role models.Role, message string) error
	ListChats(ctx context.Context, userID int64) ([]string, error)
	GetMessages(ctx context.Context, userID int64, chatID string) ([]models.ChatMessageView, error)
	// ArchiveChat выгружает переписку в объектное хранилище и возвращает ключ объекта.
	ArchiveChat(ctx context.Context, userID int64, chatID string) (string, error)
}

var _ TranscriptService = (*transcriptService)(nil)

type transcriptService struct {
	chatRepo repository.ChatRepository
	archive  storage.ArchiveStorage
	newID    func() string
}

// NewTranscriptService создает сервис истории. archive может быть nil:
// тогда ArchiveChat возвращает ErrArchiveDisabled.
func NewTranscriptService(chatRepo repository.ChatRepository, archive storage.ArchiveStorage) TranscriptService {
	return &transcriptService{
		chatRepo: chatRepo,
		archive:  archive,
		newID:    func() string { return uuid.NewString() },
	}
}

// AppendMessage добавляет одну сторону хода в чат.
func (s *transcriptService) AppendMessage(
	ctx context.Context,
	userID int64,
	chatID string,
	role models.Role,
	message string,
) error {
	if chatID == "" {
		return fmt.Errorf("%w: chat_id обязателен", ErrValidation)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: недопустимая роль '%s'", ErrValidation, role)
	}

	_, err := s.chatRepo.AppendMessage(ctx, &models.ChatMessage{
		UserID:  userID,
		ChatID:  chatID,
		Role:    role,
		Message: message,
	})
	if err != nil {
		if errors.Is(err, repository.ErrChatOwnedByOther) {
			return ErrChatOwnedByOther
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// ListChats возвращает идентификаторы чатов пользователя, свежие первыми.
func (s *transcriptService) ListChats(ctx context.Context, userID int64) ([]string, error) {
	ids, err := s.chatRepo.ListChatIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return ids, nil
}

// GetMessages возвращает сообщения чата в хронологическом порядке.
// Чужой или несуществующий чат дает пустой список.
func (s *transcriptService) GetMessages(
	ctx context.Context,
	userID int64,
	chatID string,
) ([]models.ChatMessageView, error) {
	rows, err := s.chatRepo.GetMessages(ctx, userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	views := make([]models.ChatMessageView, 0, len(rows))
	for _, row := range rows {
		views = append(views, models.ChatMessageView{Role: row.Role, Message: row.Message})
	}
	return views, nil
}

// archiveDocument - формат архивного объекта.
type archiveDocument struct {
	ChatID     string                   `json:"chat_id"`
	UserID     int64                    `json:"user_id"`
	ArchivedAt time.Time                `json:"archived_at"`
	Messages   []models.ChatMessageView `json:"messages"`
}

// ArchiveChat сериализует переписку в JSON и загружает под ключом <user_id>/<chat_id>/<uuid>.json.
func (s *transcriptService) ArchiveChat(ctx context.Context, userID int64, chatID string) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	if chatID == "" {
		return "", fmt.Errorf("%w: chat_id обязателен", ErrValidation)
	}

	messages, err := s.GetMessages(ctx, userID, chatID)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", ErrChatNotFound
	}

	body, err := json.MarshalIndent(archiveDocument{
		ChatID:     chatID,
		UserID:     userID,
		ArchivedAt: time.Now().UTC(),
		Messages:   messages,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации архива: %w", err)
	}

	key := fmt.Sprintf("%d/%s/%s.json", userID, chatID, s.newID())
	if err = s.archive.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	zap.S().Infof("[TranscriptService] Чат '%s' пользователя %d заархивирован: %s", chatID, userID, key)
	return key, nil
}
