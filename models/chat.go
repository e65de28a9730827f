package models

import "time"

// Role - автор сообщения в чате.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Valid сообщает, является ли роль одной из допустимых.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAI
}

// ChatMessage представляет одну сторону хода в чате (строка таблицы chat_messages).
// ChatID генерируется клиентом и для сервера непрозрачен.
type ChatMessage struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ChatID    string    `db:"chat_id" json:"chat_id"`
	Role      Role      `db:"role" json:"role"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessageView - сообщение в том виде, в котором его отдает GET /api/chat/{chat_id}.
type ChatMessageView struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// SaveMessageRequest - тело POST /api/chat/save.
type SaveMessageRequest struct {
	ChatID  string `json:"chat_id"`
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// CompletionRequest - тело POST /chat.
type CompletionRequest struct {
	Message string `json:"message"`
}

// RenameChatRequest - тело POST /api/chat/rename (вызывается клиентом, сервер его не реализует).
type RenameChatRequest struct {
	OldID string `json:"oldId"`
	NewID string `json:"newId"`
}

// ArchiveResponse - ответ на архивирование переписки в объектное хранилище.
type ArchiveResponse struct {
	ObjectKey string `json:"object_key"`
}
