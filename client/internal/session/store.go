// Package session хранит JWT токен между запусками клиента.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

const (
	dirName    = ".gophchat"
	fileName   = "token"
	dirPerm    = 0o700
	filePerm   = 0o600
	lockSuffix = ".lock"
)

// ErrNoToken возвращается Load, если токен еще не сохранялся.
var ErrNoToken = errors.New("сохраненный токен отсутствует")

// Store - файл с токеном, доступ к которому сериализуется файловой блокировкой.
// Несколько одновременно запущенных клиентов видят один и тот же токен.
// mu сериализует горутины одного процесса, flock - разные процессы.
type Store struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// DefaultPath возвращает ~/.gophchat/token.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("не удалось определить домашний каталог: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// NewStore создает хранилище токена по указанному пути.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + lockSuffix),
	}
}

// Path возвращает путь к файлу токена.
func (s *Store) Path() string {
	return s.path
}

// Load читает токен под разделяемой блокировкой.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err := s.lock.RLock(); err != nil {
		return "", fmt.Errorf("ошибка блокировки %s: %w", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("ошибка чтения токена: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save записывает токен под эксклюзивной блокировкой.
// Запись идет через временный файл, чтобы читатель не увидел половину токена.
func (s *Store) Save(token string) error {
	if token == "" {
		return errors.New("пустой токен не сохраняется")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("ошибка создания каталога токена: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("ошибка блокировки %s: %w", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), filePerm); err != nil {
		return fmt.Errorf("ошибка записи токена: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("ошибка замены файла токена: %w", err)
	}
	return nil
}

// Clear удаляет сохраненный токен. Отсутствие файла не считается ошибкой.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("ошибка блокировки %s: %w", s.lock.Path(), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления токена: %w", err)
	}
	return nil
}
