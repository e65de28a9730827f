package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/server/internal/auth"
	"github.com/maynagashev/gophchat/server/internal/respond"
)

// Тип для ключа контекста.
type contextKey string

// IdentityKey - ключ, под которым в контексте хранится auth.Identity.
const IdentityKey contextKey = "identity"

// TokenVerifier проверяет сессионный токен.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Authenticator проверяет заголовок "Authorization: Bearer <token>" и кладет
// личность пользователя в контекст. Любая ошибка дает 401 с JSON-телом.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				zap.S().Debug("[AuthMiddleware] Заголовок Authorization отсутствует")
				respond.Error(w, http.StatusUnauthorized, "Требуется аутентификация")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				zap.S().Infof("[AuthMiddleware] Неверный формат заголовка Authorization")
				respond.Error(w, http.StatusUnauthorized, "Неверный формат токена")
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				zap.S().Infof("[AuthMiddleware] Токен отклонен: %v", err)
				respond.Error(w, http.StatusUnauthorized, "Невалидный токен")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			zap.S().Debugf("[AuthMiddleware] Пользователь %d (%s) аутентифицирован", id.UserID, id.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext извлекает личность пользователя из контекста запроса.
func GetIdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(auth.Identity)
	return id, ok
}

// GetUserIDFromContext извлекает UserID из контекста запроса.
// Возвращает ID пользователя и true, если ID найден, иначе 0 и false.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := GetIdentityFromContext(ctx)
	return id.UserID, ok
}
