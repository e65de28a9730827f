package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/gophchat/server/internal/mailer"
	"github.com/maynagashev/gophchat/server/internal/otp"
	"github.com/maynagashev/gophchat/server/internal/repository"
)

// OTPService выдает и проверяет коды сброса пароля и меняет пароль.
type OTPService interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(email, code string) error
	// ResetPassword меняет пароль без повторной проверки кода:
	// клиент обязан вызвать VerifyOTP раньше.
	ResetPassword(ctx context.Context, email, newPassword string) error
}

var _ OTPService = (*otpService)(nil)

type otpService struct {
	store     *otp.Store
	generator otp.Generator
	mailer    mailer.Mailer
	userRepo  repository.UserRepository
}

// NewOTPService создает сервис сброса пароля.
func NewOTPService(
	store *otp.Store,
	generator otp.Generator,
	m mailer.Mailer,
	userRepo repository.UserRepository,
) OTPService {
	return &otpService{store: store, generator: generator, mailer: m, userRepo: userRepo}
}

// RequestOTP генерирует код и отправляет его на адрес.
// Наличие аккаунта с таким адресом не проверяется.
func (s *otpService) RequestOTP(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email обязателен", ErrValidation)
	}

	code, err := s.generator.Generate()
	if err != nil {
		zap.S().Errorf("[OTPService] Ошибка генерации кода для %s: %v", email, err)
		return fmt.Errorf("ошибка генерации кода: %w", err)
	}

	expiresAt := s.store.Put(email, code)

	if err = s.mailer.SendOTP(ctx, email, code); err != nil {
		zap.S().Errorf("[OTPService] Ошибка отправки кода на %s: %v", email, err)
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	zap.S().Infof("[OTPService] Код для %s выдан, действует до %s", email, expiresAt.Format("15:04:05"))
	return nil
}

// VerifyOTP сверяет код. Успешная проверка расходует код.
func (s *otpService) VerifyOTP(email, code string) error {
	if email == "" || code == "" {
		return fmt.Errorf("%w: email и код обязательны", ErrValidation)
	}

	err := s.store.Verify(email, code)
	switch {
	case err == nil:
		zap.S().Infof("[OTPService] Код для %s подтвержден", email)
		return nil
	case errors.Is(err, otp.ErrNotFound):
		return ErrOTPNotFound
	case errors.Is(err, otp.ErrExpired):
		return ErrOTPExpired
	case errors.Is(err, otp.ErrMismatch):
		zap.S().Infof("[OTPService] Неверный код для %s", email)
		return ErrOTPMismatch
	default:
		return fmt.Errorf("ошибка проверки кода: %w", err)
	}
}

// ResetPassword хеширует новый пароль и сохраняет его для пользователя с именем email.
func (s *otpService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if email == "" || newPassword == "" {
		return fmt.Errorf("%w: email и новый пароль обязательны", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		zap.S().Errorf("[OTPService] Ошибка хеширования пароля для '%s': %v", email, err)
		return fmt.Errorf("%w: ошибка хеширования пароля", ErrStorage)
	}

	if err = s.userRepo.UpdatePasswordHash(ctx, email, string(hash)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	zap.S().Infof("[OTPService] Пароль пользователя '%s' изменен", email)
	return nil
}
