package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL, импортируем для регистрации
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Драйвер SQLite (без cgo)

	"github.com/maynagashev/gophchat/server/migrations"
)

// Поддерживаемые драйверы БД.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	maxOpenConns    = 25              // Максимальное количество открытых соединений
	maxIdleConns    = 25              // Максимальное количество простаивающих соединений
	connMaxLifetime = 5 * time.Minute // Максимальное время жизни соединения
	connMaxIdleTime = 5 * time.Minute // Максимальное время простоя соединения
)

// NewDB открывает соединение с БД выбранного драйвера, проверяет его и применяет миграции.
func NewDB(driver, dsn string) (*sqlx.DB, error) {
	zap.S().Infof("Подключение к БД (драйвер %s)...", driver)

	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite не любит конкурентную запись, а база ":memory:" живет в рамках одного соединения.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetConnMaxIdleTime(connMaxIdleTime)
	}

	if err = Migrate(context.Background(), db, dialect, driver); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.S().Errorf("Ошибка закрытия соединения с БД после неудачной миграции: %v", closeErr)
		}
		return nil, err
	}

	zap.S().Infof("Подключение к БД (%s) успешно установлено.", driver)
	return db, nil
}

// Migrate применяет встроенные миграции каталога dir в указанном диалекте goose.
func Migrate(ctx context.Context, db *sqlx.DB, dialect, dir string) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("ошибка выбора диалекта миграций '%s': %w", dialect, err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}
	return nil
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", nil
	case DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// gooseLogger направляет вывод goose в zap.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	zap.S().Infof("[Migrations] "+format, v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	zap.S().Fatalf("[Migrations] "+format, v...)
}

// ErrUnsupportedDriver - драйвер БД не поддерживается.
var ErrUnsupportedDriver = errors.New("неподдерживаемый драйвер БД")
