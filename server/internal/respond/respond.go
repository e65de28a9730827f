// Package respond пишет JSON-ответы и ошибки в едином формате {"error": "..."}.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/models"
)

// JSON кодирует v в тело ответа с указанным статусом.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Статус уже отправлен, остается только залогировать
		zap.S().Errorf("[Respond] Ошибка кодирования ответа: %v", err)
	}
}

// Error отправляет {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, models.ErrorResponse{Error: message})
}
