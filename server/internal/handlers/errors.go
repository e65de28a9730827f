package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/server/internal/respond"
	"github.com/maynagashev/gophchat/server/internal/services"
)

// writeServiceError сопоставляет ошибку сервисного слоя со статусом и пишет JSON-ошибку.
func writeServiceError(w http.ResponseWriter, component string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.S().Errorf("[%s] Внутренняя ошибка: %v", component, err)
		respond.Error(w, status, "Внутренняя ошибка сервера")
		return
	}
	zap.S().Infof("[%s] Запрос отклонен (%d): %v", component, status, err)
	respond.Error(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrOTPNotFound),
		errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrOTPMismatch),
		errors.Is(err, services.ErrChatOwnedByOther):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
