package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/gophchat/server/internal/repository"
)

func TestNewDB(t *testing.T) {
	t.Run("SQLite в памяти", func(t *testing.T) {
		db, err := repository.NewDB(repository.DriverSQLite, ":memory:")
		require.NoError(t, err)
		require.NotNil(t, db)
		t.Cleanup(func() { _ = db.Close() })

		var tables int
		require.NoError(t, db.Get(&tables,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('users', 'chat_messages')`))
		assert.Equal(t, 2, tables)
	})

	t.Run("Повторные миграции не ломают схему", func(t *testing.T) {
		db, err := repository.NewDB(repository.DriverSQLite, ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		require.NoError(t, repository.Migrate(context.Background(), db, "sqlite3", repository.DriverSQLite))
	})

	t.Run("Ошибка: неподдерживаемый драйвер", func(t *testing.T) {
		db, err := repository.NewDB("mysql", "dsn")
		require.ErrorIs(t, err, repository.ErrUnsupportedDriver)
		assert.Nil(t, db)
	})

	t.Run("Ошибка: невалидный DSN PostgreSQL", func(t *testing.T) {
		db, err := repository.NewDB(repository.DriverPostgres, "это точно не dsn")
		require.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "ошибка подключения к БД")
	})

	t.Run("PostgreSQL", func(t *testing.T) {
		// Этот тест требует запущенной PostgreSQL базы данных
		dsn := os.Getenv("DATABASE_DSN")
		if dsn == "" {
			t.Skip("Пропуск теста: переменная окружения DATABASE_DSN не установлена")
		}

		db, err := repository.NewDB(repository.DriverPostgres, dsn)
		require.NoError(t, err)
		require.NoError(t, db.Ping())
		require.NoError(t, db.Close())
	})
}
