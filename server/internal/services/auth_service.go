package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/gophchat/models"
	"github.com/maynagashev/gophchat/server/internal/auth"
	"github.com/maynagashev/gophchat/server/internal/repository"
)

// BcryptCost - стоимость хеширования паролей.
const BcryptCost = 10

// TokenIssuer выпускает и проверяет сессионные токены.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
	Verify(token string) (auth.Identity, error)
}

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Signup(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error) // Возвращает JWT токен или ошибку
	Verify(token string) (auth.Identity, error)
}

var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo repository.UserRepository
	tokens   TokenIssuer
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
func NewAuthService(userRepo repository.UserRepository, tokens TokenIssuer) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens}
}

// Signup регистрирует нового пользователя. Токен при регистрации не выдается.
func (s *authService) Signup(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: имя пользователя и пароль обязательны", ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		zap.S().Errorf("[AuthService] Ошибка хеширования пароля для '%s': %v", username, err)
		return fmt.Errorf("%w: ошибка хеширования пароля", ErrStorage)
	}

	_, err = s.userRepo.CreateUser(ctx, &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			zap.S().Infof("[AuthService] Попытка регистрации с занятым именем: %s", username)
			return ErrUsernameTaken
		}
		zap.S().Errorf("[AuthService] Непредвиденная ошибка репозитория при регистрации '%s': %v", username, err)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	zap.S().Infof("[AuthService] Пользователь '%s' успешно зарегистрирован", username)
	return nil
}

// Login аутентифицирует пользователя и возвращает JWT токен.
// Неизвестный пользователь и неверный пароль различаются: ErrUserNotFound и ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("%w: имя пользователя и пароль обязательны", ErrValidation)
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			zap.S().Infof("[AuthService] Попытка входа несуществующего пользователя: %s", username)
			return "", ErrUserNotFound
		}
		zap.S().Errorf("[AuthService] Ошибка репозитория при поиске '%s': %v", username, err)
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		zap.S().Infof("[AuthService] Неверный пароль для пользователя: %s", username)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		zap.S().Errorf("[AuthService] Ошибка генерации JWT для '%s': %v", username, err)
		return "", fmt.Errorf("ошибка генерации токена: %w", err)
	}

	zap.S().Infof("[AuthService] Пользователь '%s' успешно аутентифицирован", username)
	return token, nil
}

// Verify проверяет токен и возвращает зашитую в него личность.
func (s *authService) Verify(token string) (auth.Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		zap.S().Debugf("[AuthService] Токен отклонен: %v", err)
		return auth.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return id, nil
}
