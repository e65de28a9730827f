// Package mocks содержит testify-моки интерфейсов сервера для модульных тестов.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/gophchat/models"
)

// UserRepository - мок repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	args := m.Called(ctx, username, passwordHash)
	return args.Error(0)
}

// ChatRepository - мок repository.ChatRepository.
type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) AppendMessage(ctx context.Context, msg *models.ChatMessage) (int64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ChatRepository) ListChatIDs(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *ChatRepository) GetMessages(ctx context.Context, userID int64, chatID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, userID, chatID)
	rows, _ := args.Get(0).([]models.ChatMessage)
	return rows, args.Error(1)
}
