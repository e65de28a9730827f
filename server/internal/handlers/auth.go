package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/models"
	"github.com/maynagashev/gophchat/server/internal/respond"
	"github.com/maynagashev/gophchat/server/internal/services"
)

// AuthHandler обрабатывает HTTP-запросы, связанные с аутентификацией.
type AuthHandler struct {
	service services.AuthService
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s services.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Signup обрабатывает POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.S().Infof("[AuthHandler] Ошибка декодирования запроса регистрации: %v", err)
		respond.Error(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	if err := h.service.Signup(r.Context(), req.Username, req.Password); err != nil {
		writeServiceError(w, "AuthHandler", err)
		return
	}

	respond.JSON(w, http.StatusOK, models.MessageResponse{Message: "Пользователь успешно зарегистрирован"})
}

// Login обрабатывает POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.S().Infof("[AuthHandler] Ошибка декодирования запроса входа: %v", err)
		respond.Error(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, "AuthHandler", err)
		return
	}

	respond.JSON(w, http.StatusOK, models.LoginResponse{Message: "Вход выполнен", Token: token})
}
