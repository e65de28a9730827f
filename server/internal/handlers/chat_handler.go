package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/models"
	"github.com/maynagashev/gophchat/server/internal/completion"
	"github.com/maynagashev/gophchat/server/internal/respond"
)

// ChatHandler отдает ответ генератора потоком.
type ChatHandler struct {
	gateway *completion.Gateway
}

// NewChatHandler создает новый экземпляр ChatHandler.
func NewChatHandler(gateway *completion.Gateway) *ChatHandler {
	return &ChatHandler{gateway: gateway}
}

// Chat обрабатывает POST /chat. После отправки заголовков ошибки пишутся
// только в поток (маркер) и в лог.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if err := h.gateway.Validate(req.Message); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	n, err := h.gateway.Relay(r.Context(), req.Message, w)
	if err != nil {
		zap.S().Warnf("[ChatHandler] Поток завершен с ошибкой после %d байт: %v", n, err)
		return
	}
	zap.S().Debugf("[ChatHandler] Поток завершен, %d байт", n)
}
