package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/models"
	"github.com/maynagashev/gophchat/server/internal/middleware"
	"github.com/maynagashev/gophchat/server/internal/respond"
	"github.com/maynagashev/gophchat/server/internal/services"
)

// TranscriptHandler обрабатывает запросы к истории чатов. Все маршруты за Authenticator.
type TranscriptHandler struct {
	service services.TranscriptService
}

// NewTranscriptHandler создает новый экземпляр TranscriptHandler.
func NewTranscriptHandler(s services.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{service: s}
}

// userID достает ID пользователя из контекста, иначе отвечает 401.
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		zap.S().Error("[TranscriptHandler] Не удалось получить UserID из контекста")
		respond.Error(w, http.StatusUnauthorized, "Требуется аутентификация")
	}
	return id, ok
}

// Save обрабатывает POST /api/chat/save.
func (h *TranscriptHandler) Save(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req models.SaveMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	if err := h.service.AppendMessage(r.Context(), uid, req.ChatID, req.Role, req.Message); err != nil {
		writeServiceError(w, "TranscriptHandler", err)
		return
	}

	respond.JSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// List обрабатывает GET /api/chat/list.
func (h *TranscriptHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	ids, err := h.service.ListChats(r.Context(), uid)
	if err != nil {
		writeServiceError(w, "TranscriptHandler", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	respond.JSON(w, http.StatusOK, ids)
}

// Get обрабатывает GET /api/chat/{chat_id}.
func (h *TranscriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	messages, err := h.service.GetMessages(r.Context(), uid, chi.URLParam(r, "chat_id"))
	if err != nil {
		writeServiceError(w, "TranscriptHandler", err)
		return
	}
	if messages == nil {
		messages = []models.ChatMessageView{}
	}

	respond.JSON(w, http.StatusOK, messages)
}

// Archive обрабатывает POST /api/chat/{chat_id}/archive.
func (h *TranscriptHandler) Archive(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	key, err := h.service.ArchiveChat(r.Context(), uid, chi.URLParam(r, "chat_id"))
	if err != nil {
		writeServiceError(w, "TranscriptHandler", err)
		return
	}

	respond.JSON(w, http.StatusOK, models.ArchiveResponse{ObjectKey: key})
}
