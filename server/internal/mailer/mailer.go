// Package mailer отправляет пользователю код сброса пароля.
package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Mailer доставляет письма. Реальная доставка почты за пределами сервиса.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// LogMailer только пишет код в лог сервера.
type LogMailer struct{}

// SendOTP логирует адрес и код.
func (LogMailer) SendOTP(_ context.Context, email, code string) error {
	zap.S().Infof("[Mailer] Код сброса пароля для %s: %s", email, code)
	return nil
}
