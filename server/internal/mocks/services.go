package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/gophchat/models"
	"github.com/maynagashev/gophchat/server/internal/auth"
)

// AuthService - мок services.AuthService.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Signup(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

func (m *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *AuthService) Verify(token string) (auth.Identity, error) {
	args := m.Called(token)
	return args.Get(0).(auth.Identity), args.Error(1)
}

// OTPService - мок services.OTPService.
type OTPService struct {
	mock.Mock
}

func (m *OTPService) RequestOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *OTPService) VerifyOTP(email, code string) error {
	return m.Called(email, code).Error(0)
}

func (m *OTPService) ResetPassword(ctx context.Context, email, newPassword string) error {
	return m.Called(ctx, email, newPassword).Error(0)
}

// TranscriptService - мок services.TranscriptService.
type TranscriptService struct {
	mock.Mock
}

func (m *TranscriptService) AppendMessage(
	ctx context.Context, userID int64, chatID string, role models.Role, message string,
) error {
	return m.Called(ctx, userID, chatID, role, message).Error(0)
}

func (m *TranscriptService) ListChats(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *TranscriptService) GetMessages(
	ctx context.Context, userID int64, chatID string,
) ([]models.ChatMessageView, error) {
	args := m.Called(ctx, userID, chatID)
	views, _ := args.Get(0).([]models.ChatMessageView)
	return views, args.Error(1)
}

func (m *TranscriptService) ArchiveChat(ctx context.Context, userID int64, chatID string) (string, error) {
	args := m.Called(ctx, userID, chatID)
	return args.String(0), args.Error(1)
}

// Mailer - мок mailer.Mailer.
type Mailer struct {
	mock.Mock
}

func (m *Mailer) SendOTP(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

// ArchiveStorage - мок storage.ArchiveStorage. Тело объекта сохраняется в LastBody.
type ArchiveStorage struct {
	mock.Mock
	LastBody []byte
}

func (m *ArchiveStorage) Upload(
	ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string,
) error {
	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.LastBody = body
	return m.Called(ctx, objectKey, size, contentType).Error(0)
}
