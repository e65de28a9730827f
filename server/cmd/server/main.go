package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maynagashev/gophchat/server/internal/auth"
	"github.com/maynagashev/gophchat/server/internal/completion"
	"github.com/maynagashev/gophchat/server/internal/handlers"
	"github.com/maynagashev/gophchat/server/internal/mailer"
	appmiddleware "github.com/maynagashev/gophchat/server/internal/middleware"
	"github.com/maynagashev/gophchat/server/internal/otp"
	"github.com/maynagashev/gophchat/server/internal/repository"
	"github.com/maynagashev/gophchat/server/internal/services"
	"github.com/maynagashev/gophchat/server/internal/storage"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	shutdownTimeout          = 10 * time.Second
)

// newDB подменяется в тестах.
var newDB = repository.NewDB

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db                *sqlx.DB
	verifier          appmiddleware.TokenVerifier
	authHandler       *handlers.AuthHandler
	otpHandler        *handlers.OTPHandler
	chatHandler       *handlers.ChatHandler
	transcriptHandler *handlers.TranscriptHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	cfg, err := parseFlags(os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	if err = run(cfg); err != nil {
		zap.S().Errorf("Ошибка выполнения сервера: %v", err)
		_ = logger.Sync()
		os.Exit(1) //nolint:gocritic // defer уже не нужен
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run(cfg *config) error {
	zap.S().Info("Запуск сервера GophChat...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer func() {
		if closeErr := deps.db.Close(); closeErr != nil {
			zap.S().Errorf("Ошибка закрытия соединения с БД: %v", closeErr)
		}
	}()

	// WriteTimeout не задан: ответ /chat - поток неограниченной длины.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(deps),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSEnabled() {
			zap.S().Infof("Запуск HTTPS-сервера на порту %s (сертификат %s)", cfg.Port, cfg.CertFile)
			errCh <- server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		zap.S().Infof("Запуск HTTP-сервера на порту %s", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
		zap.S().Info("Получен сигнал остановки, завершаем работу...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(ctx context.Context, cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД и миграции
	deps.db, err = newDB(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}

	closeDB := func() {
		if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
			zap.S().Errorf("Ошибка закрытия соединения с БД: %v", dbCloseErr)
		}
	}

	// 2. Архив в MinIO (необязательный)
	var archive storage.ArchiveStorage
	if cfg.MinioEndpoint != "" {
		minioArchive, minioErr := storage.NewMinioArchive(ctx, storage.MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioUser,
			SecretAccessKey: cfg.MinioPassword,
			UseSSL:          cfg.MinioUseSSL,
			BucketName:      cfg.MinioBucket,
		})
		if minioErr != nil {
			closeDB()
			return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", minioErr)
		}
		archive = minioArchive
	} else {
		zap.S().Info("MINIO_ENDPOINT не задан, архивирование чатов отключено")
	}

	// 3. Генератор ответов
	generator, err := newGenerator(cfg)
	if err != nil {
		closeDB()
		return nil, err
	}

	// 4. Токены
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("ошибка инициализации токенов: %w", err)
	}

	// 5. Репозитории и сервисы
	userRepo := repository.NewUserRepository(deps.db)
	chatRepo := repository.NewChatRepository(deps.db)

	authService := services.NewAuthService(userRepo, tokens)
	otpService := services.NewOTPService(otp.NewStore(cfg.OTPTTL), otp.HOTPGenerator{}, mailer.LogMailer{}, userRepo)
	transcriptService := services.NewTranscriptService(chatRepo, archive)

	// 6. Обработчики
	deps.verifier = authService
	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.otpHandler = handlers.NewOTPHandler(otpService)
	deps.chatHandler = handlers.NewChatHandler(completion.NewGateway(generator, cfg.SystemInstruction))
	deps.transcriptHandler = handlers.NewTranscriptHandler(transcriptService)

	return deps, nil
}

// newGenerator выбирает реализацию генератора по конфигурации.
func newGenerator(cfg *config) (completion.Generator, error) {
	switch cfg.CompletionBackend {
	case backendOpenAI:
		zap.S().Infof("Генератор: OpenAI-совместимый API %s, модель %s", cfg.OpenAIBaseURL, cfg.OpenAIModel)
		gen, err := completion.NewOpenAIGenerator(completion.OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Token:   cfg.OpenAIToken,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации генератора: %w", err)
		}
		return gen, nil
	default:
		zap.S().Infof("Генератор: процесс '%s'", cfg.WorkerCommand)
		gen, err := completion.NewProcessGenerator(strings.Fields(cfg.WorkerCommand))
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации генератора: %w", err)
		}
		return gen, nil
	}
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	// Публичные маршруты
	r.Post("/signup", deps.authHandler.Signup)
	r.Post("/login", deps.authHandler.Login)
	r.Post("/chat", deps.chatHandler.Chat)
	r.Post("/send-otp", deps.otpHandler.SendOTP)
	r.Post("/verify-otp", deps.otpHandler.VerifyOTP)
	r.Post("/reset-password-email", deps.otpHandler.ResetPassword)

	// Приватные маршруты (требуют аутентификации)
	r.Route("/api/chat", func(r chi.Router) {
		r.Use(appmiddleware.Authenticator(deps.verifier))
		r.Post("/save", deps.transcriptHandler.Save)
		r.Get("/list", deps.transcriptHandler.List)
		r.Get("/{chat_id}", deps.transcriptHandler.Get)
		r.Post("/{chat_id}/archive", deps.transcriptHandler.Archive)
	})
	return r
}
