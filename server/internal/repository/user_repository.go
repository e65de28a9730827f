package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/maynagashev/gophchat/models"
)

// Коды ошибок PostgreSQL.
const (
	pgUniqueViolationCode = "23505"
)

// UserRepository определяет методы для работы с данными пользователей в хранилище.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
}

// sqlUserRepository реализует UserRepository поверх sqlx (PostgreSQL или SQLite).
type sqlUserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создает новый экземпляр репозитория пользователей.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

// CreateUser создает нового пользователя в базе данных.
// Возвращает ID созданного пользователя или ErrUsernameTaken, если имя уже занято.
func (r *sqlUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	query := r.db.Rebind(`INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`)
	var userID int64

	err := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			zap.S().Infof("[UserRepo] Ошибка создания пользователя: имя пользователя '%s' уже занято", user.Username)
			return 0, ErrUsernameTaken
		}
		zap.S().Errorf("[UserRepo] Непредвиденная ошибка при создании пользователя '%s': %v", user.Username, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание пользователя: %w", err)
	}

	zap.S().Infof("[UserRepo] Пользователь '%s' успешно создан с ID %d", user.Username, userID)
	return userID, nil
}

// GetUserByUsername находит пользователя по его имени.
func (r *sqlUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.db.Rebind(`SELECT id, username, password_hash, created_at, updated_at FROM users WHERE username=?`)
	var user models.User

	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			zap.S().Infof("[UserRepo] Пользователь с именем '%s' не найден", username)
			return nil, ErrUserNotFound
		}
		zap.S().Errorf("[UserRepo] Ошибка при поиске пользователя '%s': %v", username, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}

	return &user, nil
}

// UpdatePasswordHash заменяет хеш пароля пользователя.
// Возвращает ErrUserNotFound, если пользователя с таким именем нет.
func (r *sqlUserRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	query := r.db.Rebind(`UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE username=?`)

	res, err := r.db.ExecContext(ctx, query, passwordHash, username)
	if err != nil {
		zap.S().Errorf("[UserRepo] Ошибка обновления пароля пользователя '%s': %v", username, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление пароля: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа обновленных строк: %w", err)
	}
	if affected == 0 {
		zap.S().Infof("[UserRepo] Обновление пароля: пользователь '%s' не найден", username)
		return ErrUserNotFound
	}

	zap.S().Infof("[UserRepo] Пароль пользователя '%s' обновлен", username)
	return nil
}

// isUniqueViolation распознает нарушение уникальности в обоих поддерживаемых драйверах.
func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
		return true
	}
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// Без расширенных кодов SQLite отдает только базовый SQLITE_CONSTRAINT.
	return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
}

// Кастомные ошибки репозитория.
var (
	ErrUserNotFound  = errors.New("пользователь не найден")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
)
