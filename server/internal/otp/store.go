// Package otp хранит одноразовые коды сброса пароля в памяти процесса.
//
// Хранилище локально для процесса: при запуске нескольких экземпляров
// сервера его нужно заменить общим внешним хранилищем.
package otp

import (
	"errors"
	"sync"
	"time"
)

type record struct {
	code      string
	expiresAt time.Time
}

// Store - отображение email -> (код, срок действия).
type Store struct {
	mu      sync.Mutex
	records map[string]record
	ttl     time.Duration
	now     func() time.Time
}

// NewStore создает пустое хранилище с заданным временем жизни кода.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		records: make(map[string]record),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Put сохраняет код для email, перезаписывая предыдущий.
func (s *Store) Put(email, code string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)
	s.records[email] = record{code: code, expiresAt: expiresAt}
	return expiresAt
}

// Verify сверяет код. Верный код удаляется, истекший тоже.
// Неверный код запись не трогает.
func (s *Store) Verify(email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		return ErrNotFound
	}
	if s.now().After(rec.expiresAt) {
		delete(s.records, email)
		return ErrExpired
	}
	if rec.code != code {
		return ErrMismatch
	}

	delete(s.records, email)
	return nil
}

// Len возвращает число хранимых записей.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

var (
	ErrNotFound = errors.New("код не запрашивался")
	ErrExpired  = errors.New("срок действия кода истек")
	ErrMismatch = errors.New("неверный код")
)
