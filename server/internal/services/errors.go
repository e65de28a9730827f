package services

import "errors"

// Ошибки сервисного слоя. Обработчики сопоставляют их с HTTP-статусами через errors.Is.
var (
	// ErrValidation - отсутствующие или некорректные входные данные (400).
	ErrValidation = errors.New("некорректные входные данные")
	// ErrUsernameTaken - имя пользователя уже занято (400).
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	// ErrUserNotFound - пользователь не найден (400).
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrInvalidCredentials - неверный пароль (401).
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	// ErrInvalidToken - отсутствующий, поддельный или истекший токен (401).
	ErrInvalidToken = errors.New("невалидный токен")
	// ErrOTPNotFound - код для адреса не запрашивался (400).
	ErrOTPNotFound = errors.New("код не запрашивался")
	// ErrOTPExpired - срок действия кода истек (400).
	ErrOTPExpired = errors.New("срок действия кода истек")
	// ErrOTPMismatch - код не совпадает (400).
	ErrOTPMismatch = errors.New("неверный код")
	// ErrChatOwnedByOther - идентификатор чата занят другим пользователем (400).
	ErrChatOwnedByOther = errors.New("чат принадлежит другому пользователю")
	// ErrChatNotFound - у пользователя нет такого чата (404).
	ErrChatNotFound = errors.New("чат не найден")
	// ErrStorage - ошибка хранилища (500).
	ErrStorage = errors.New("ошибка хранилища")
	// ErrMailDelivery - не удалось отправить письмо (500).
	ErrMailDelivery = errors.New("не удалось отправить код")
	// ErrArchiveDisabled - объектное хранилище не настроено (503).
	ErrArchiveDisabled = errors.New("архивирование не настроено")
)
