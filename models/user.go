package models

import "time"

// User представляет пользователя системы.
// Тэги `db` используются для маппинга с полями БД с помощью sqlx.
// Тэги `json` используются для (де)сериализации JSON.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"` // Не отправляем хеш пароля в JSON
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SignupRequest представляет тело запроса на регистрацию.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest представляет тело запроса на вход.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse представляет тело ответа при успешном входе.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// SendOTPRequest - запрос одноразового кода для сброса пароля.
type SendOTPRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest - проверка одноразового кода.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest - установка нового пароля после проверки кода.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// MessageResponse - стандартный успешный ответ с текстом.
type MessageResponse struct {
	Message string `json:"message"`
}

// SuccessResponse - успешный ответ без данных.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse - тело любого ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}
