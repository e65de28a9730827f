package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/maynagashev/gophchat/models"
)

// ErrAuthorization сигнализирует об ошибке авторизации (401).
var ErrAuthorization = errors.New("ошибка авторизации")

// ErrNotImplementedOnServer возвращается для эндпоинтов, которые клиент вызывает,
// а сервер не обслуживает (404/405).
var ErrNotImplementedOnServer = errors.New("операция не реализована на сервере")

// ErrMissingToken возвращается, если защищенный эндпоинт вызван до входа.
var ErrMissingToken = errors.New("токен аутентификации отсутствует")

// StatusError - неуспешный ответ сервера с текстом из поля error.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("статус %d", e.Code)
	}
	return fmt.Sprintf("статус %d: %s", e.Code, e.Message)
}

// Client определяет интерфейс для взаимодействия с API сервера GophChat.
type Client interface {
	// Signup регистрирует нового пользователя.
	Signup(ctx context.Context, username, password string) error
	// Login аутентифицирует пользователя, запоминает и возвращает JWT токен.
	Login(ctx context.Context, username, password string) (string, error)
	// Chat отправляет сообщение модели и возвращает поток ответа.
	// Вызывающая сторона обязана закрыть поток.
	Chat(ctx context.Context, message string) (io.ReadCloser, error)
	// SaveMessage сохраняет одну сторону хода.
	SaveMessage(ctx context.Context, chatID string, role models.Role, message string) error
	// ListChats возвращает идентификаторы чатов, последние активные первыми.
	ListChats(ctx context.Context) ([]string, error)
	// GetMessages возвращает переписку чата по порядку.
	GetMessages(ctx context.Context, chatID string) ([]models.ChatMessageView, error)
	// ArchiveChat выгружает переписку в объектное хранилище сервера.
	ArchiveChat(ctx context.Context, chatID string) (string, error)
	// RenameChat переименовывает чат.
	RenameChat(ctx context.Context, oldID, newID string) error
	// DeleteChat удаляет чат.
	DeleteChat(ctx context.Context, chatID string) error
	// SendOTP запрашивает одноразовый код на почту.
	SendOTP(ctx context.Context, email string) error
	// VerifyOTP проверяет одноразовый код.
	VerifyOTP(ctx context.Context, email, code string) error
	// ResetPassword устанавливает новый пароль.
	ResetPassword(ctx context.Context, email, newPassword string) error
	// SetAuthToken устанавливает JWT токен для аутентифицированных запросов.
	SetAuthToken(token string)
	// AuthToken возвращает текущий токен.
	AuthToken() string
}

// httpClient реализует интерфейс Client поверх HTTP.
type httpClient struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewHTTPClient создает новый экземпляр API клиента.
// Таймаут не задается: поток /chat открыт, пока модель генерирует ответ.
func NewHTTPClient(baseURL string) Client {
	return &httpClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *httpClient) SetAuthToken(token string) {
	c.authToken = token
}

func (c *httpClient) AuthToken() string {
	return c.authToken
}

// newRequest собирает запрос к path, кодируя body в JSON, если он задан.
func (c *httpClient) newRequest(
	ctx context.Context,
	method, path string,
	body any,
	withAuth bool,
) (*http.Request, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования URL %s: %w", path, err)
	}

	var reader io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return nil, fmt.Errorf("ошибка кодирования запроса %s: %w", path, marshalErr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		if c.authToken == "" {
			return nil, ErrMissingToken
		}
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	return req, nil
}

// doJSON выполняет запрос и при статусе 200 декодирует ответ в out (если out != nil).
func (c *httpClient) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа %s: %w", req.URL.Path, err)
	}
	return nil
}

// statusError превращает неуспешный ответ в ошибку; 401 всегда ErrAuthorization.
func statusError(resp *http.Response) error {
	var body models.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	se := &StatusError{Code: resp.StatusCode, Message: body.Error}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrAuthorization, se.Error())
	}
	return se
}

func (c *httpClient) Signup(ctx context.Context, username, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/signup",
		models.SignupRequest{Username: username, Password: password}, false)
	if err != nil {
		return err
	}
	if err = c.doJSON(req, nil); err != nil {
		return fmt.Errorf("ошибка регистрации: %w", err)
	}
	return nil
}

func (c *httpClient) Login(ctx context.Context, username, password string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/login",
		models.LoginRequest{Username: username, Password: password}, false)
	if err != nil {
		return "", err
	}
	var resp models.LoginResponse
	if err = c.doJSON(req, &resp); err != nil {
		return "", fmt.Errorf("ошибка входа: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("сервер вернул пустой токен")
	}
	c.authToken = resp.Token
	return resp.Token, nil
}

func (c *httpClient) Chat(ctx context.Context, message string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/chat", models.CompletionRequest{Message: message}, false)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса /chat: %w", err)
	}
	// Тело не закрываем: его читает вызывающая сторона.
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("ошибка генерации ответа: %w", statusError(resp))
	}
	return resp.Body, nil
}

func (c *httpClient) SaveMessage(ctx context.Context, chatID string, role models.Role, message string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/save",
		models.SaveMessageRequest{ChatID: chatID, Role: role, Message: message}, true)
	if err != nil {
		return err
	}
	var resp models.SuccessResponse
	if err = c.doJSON(req, &resp); err != nil {
		return fmt.Errorf("ошибка сохранения сообщения: %w", err)
	}
	if !resp.Success {
		return errors.New("сервер не подтвердил сохранение сообщения")
	}
	return nil
}

func (c *httpClient) ListChats(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/chat/list", nil, true)
	if err != nil {
		return nil, err
	}
	chats := []string{}
	if err = c.doJSON(req, &chats); err != nil {
		return nil, fmt.Errorf("ошибка получения списка чатов: %w", err)
	}
	return chats, nil
}

func (c *httpClient) GetMessages(ctx context.Context, chatID string) ([]models.ChatMessageView, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(chatID), nil, true)
	if err != nil {
		return nil, err
	}
	messages := []models.ChatMessageView{}
	if err = c.doJSON(req, &messages); err != nil {
		return nil, fmt.Errorf("ошибка получения сообщений чата %s: %w", chatID, err)
	}
	return messages, nil
}

func (c *httpClient) ArchiveChat(ctx context.Context, chatID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/"+url.PathEscape(chatID)+"/archive", nil, true)
	if err != nil {
		return "", err
	}
	var resp models.ArchiveResponse
	if err = c.doJSON(req, &resp); err != nil {
		return "", fmt.Errorf("ошибка архивирования чата %s: %w", chatID, err)
	}
	return resp.ObjectKey, nil
}

func (c *httpClient) RenameChat(ctx context.Context, oldID, newID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/rename",
		models.RenameChatRequest{OldID: oldID, NewID: newID}, true)
	if err != nil {
		return err
	}
	if err = notImplemented(c.doJSON(req, nil)); err != nil {
		return fmt.Errorf("ошибка переименования чата %s: %w", oldID, err)
	}
	return nil
}

func (c *httpClient) DeleteChat(ctx context.Context, chatID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/chat/delete/"+url.PathEscape(chatID), nil, true)
	if err != nil {
		return err
	}
	if err = notImplemented(c.doJSON(req, nil)); err != nil {
		return fmt.Errorf("ошибка удаления чата %s: %w", chatID, err)
	}
	return nil
}

// notImplemented заменяет 404/405 на ErrNotImplementedOnServer.
func notImplemented(err error) error {
	var se *StatusError
	if errors.As(err, &se) &&
		(se.Code == http.StatusNotFound || se.Code == http.StatusMethodNotAllowed) {
		return fmt.Errorf("%w: %s", ErrNotImplementedOnServer, se.Error())
	}
	return err
}

func (c *httpClient) SendOTP(ctx context.Context, email string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/send-otp", models.SendOTPRequest{Email: email}, false)
	if err != nil {
		return err
	}
	if err = c.doJSON(req, nil); err != nil {
		return fmt.Errorf("ошибка отправки кода: %w", err)
	}
	return nil
}

func (c *httpClient) VerifyOTP(ctx context.Context, email, code string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/verify-otp",
		models.VerifyOTPRequest{Email: email, OTP: code}, false)
	if err != nil {
		return err
	}
	var resp models.SuccessResponse
	if err = c.doJSON(req, &resp); err != nil {
		return fmt.Errorf("ошибка проверки кода: %w", err)
	}
	if !resp.Success {
		return errors.New("код не подтвержден")
	}
	return nil
}

func (c *httpClient) ResetPassword(ctx context.Context, email, newPassword string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/reset-password-email",
		models.ResetPasswordRequest{Email: email, NewPassword: newPassword}, false)
	if err != nil {
		return err
	}
	if err = c.doJSON(req, nil); err != nil {
		return fmt.Errorf("ошибка сброса пароля: %w", err)
	}
	return nil
}
