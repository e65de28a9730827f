package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/models"
	"github.com/maynagashev/gophchat/server/internal/respond"
	"github.com/maynagashev/gophchat/server/internal/services"
)

// OTPHandler обрабатывает сброс пароля по одноразовому коду.
type OTPHandler struct {
	service services.OTPService
}

// NewOTPHandler создает новый экземпляр OTPHandler.
func NewOTPHandler(s services.OTPService) *OTPHandler {
	return &OTPHandler{service: s}
}

// SendOTP обрабатывает POST /send-otp.
func (h *OTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.S().Infof("[OTPHandler] Ошибка декодирования запроса кода: %v", err)
		respond.Error(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	if err := h.service.RequestOTP(r.Context(), req.Email); err != nil {
		writeServiceError(w, "OTPHandler", err)
		return
	}

	respond.JSON(w, http.StatusOK, models.MessageResponse{Message: "Код отправлен"})
}

// VerifyOTP обрабатывает POST /verify-otp.
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	if err := h.service.VerifyOTP(req.Email, req.OTP); err != nil {
		writeServiceError(w, "OTPHandler", err)
		return
	}

	respond.JSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// ResetPassword обрабатывает POST /reset-password-email.
func (h *OTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		writeServiceError(w, "OTPHandler", err)
		return
	}

	respond.JSON(w, http.StatusOK, models.MessageResponse{Message: "Пароль изменен"})
}
