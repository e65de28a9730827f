package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/maynagashev/gophchat/client/internal/api"
	"github.com/maynagashev/gophchat/client/internal/chat"
	"github.com/maynagashev/gophchat/client/internal/repl"
	"github.com/maynagashev/gophchat/client/internal/session"
	"github.com/maynagashev/gophchat/client/internal/tui"
)

const (
	logDir             = "logs"
	logFileName        = "client.log"
	logFilePermissions = 0o666
	// Переменная окружения с адресом сервера.
	serverURLEnvVar  = "GOPHCHAT_SERVER_URL"
	defaultServerURL = "http://localhost:3000"
)

// Переменные для версии и даты сборки, устанавливаются через ldflags.
var (
	version = "dev"
	//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
	buildDate = "unknown"
	//nolint:gochecknoglobals // Устанавливается через ldflags при сборке
	commitHash = "N/A"
)

// options - итоговые параметры запуска клиента.
type options struct {
	serverURL     string
	urlSource     string
	tokenFile     string
	markdownStyle string
	plain         bool
	debug         bool
	showVersion   bool
}

// parseOptions разбирает флаги. Флаг -server-url важнее переменной окружения,
// переменная важнее значения по умолчанию.
func parseOptions(args []string, getenv func(string) string) (*options, error) {
	fs := flag.NewFlagSet("gophchat", flag.ContinueOnError)
	opts := &options{}

	fs.BoolVar(&opts.showVersion, "version", false, "Показать версию и дату сборки")
	serverURL := fs.String("server-url", defaultServerURL, "URL сервера GophChat (переопределяет "+serverURLEnvVar+")")
	fs.StringVar(&opts.tokenFile, "token-file", "", "Файл с сохраненным токеном (по умолчанию ~/.gophchat/token)")
	fs.StringVar(&opts.markdownStyle, "style", "auto", "Стиль оформления ответов: auto, dark, light, notty")
	fs.BoolVar(&opts.plain, "plain", false, "Построчный режим вместо полноэкранного интерфейса")
	fs.BoolVar(&opts.debug, "debug", false, "Показывать отладочную информацию в интерфейсе")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.serverURL = defaultServerURL
	opts.urlSource = "по умолчанию"
	if envURL := getenv(serverURLEnvVar); envURL != "" {
		opts.serverURL = envURL
		opts.urlSource = "переменная окружения (" + serverURLEnvVar + ")"
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "server-url" {
			opts.serverURL = *serverURL
			opts.urlSource = "флаг -server-url"
		}
	})
	if opts.serverURL == "" {
		return nil, errors.New("URL сервера не может быть пустым: проверьте флаг -server-url и " + serverURLEnvVar)
	}

	if opts.tokenFile == "" {
		path, err := session.DefaultPath()
		if err != nil {
			return nil, err
		}
		opts.tokenFile = path
	}
	return opts, nil
}

// setupLogging настраивает логирование в файл logs/client.log: терминал занят интерфейсом.
func setupLogging() (io.Closer, error) {
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
	}
	logPath := filepath.Join(logDir, logFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть лог-файл: %w", err)
	}

	logHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(logHandler))
	slog.Info("Логгер инициализирован", "path", logPath)
	return logFile, nil
}

func printVersion(w io.Writer) {
	l := log.New(w, "", 0)
	l.Println("GophChat Client")
	l.Printf("Version: %s", version)
	l.Printf("Build Date: %s", buildDate)
	l.Printf("Commit Hash: %s", commitHash)
}

// restoreSession подставляет сохраненный токен в клиент. Возвращает true, если токен найден.
func restoreSession(client api.Client, tokens *session.Store) bool {
	token, err := tokens.Load()
	if errors.Is(err, session.ErrNoToken) {
		return false
	}
	if err != nil {
		slog.Warn("Не удалось прочитать сохраненный токен", "path", tokens.Path(), "error", err)
		return false
	}
	client.SetAuthToken(token)
	slog.Info("Восстановлена сохраненная сессия", "path", tokens.Path())
	return true
}

func run(opts *options) error {
	client := api.NewHTTPClient(opts.serverURL)
	tokens := session.NewStore(opts.tokenFile)
	authenticated := restoreSession(client, tokens)
	ctrl := chat.NewController(client)

	slog.Info("Запуск GophChat",
		"server_url", opts.serverURL,
		"source", opts.urlSource,
		"plain", opts.plain,
		"debug", opts.debug,
		"authenticated", authenticated,
	)

	if opts.plain {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()
		return repl.New(repl.NewLiner(), os.Stdout, ctrl, client, tokens, authenticated).Run(ctx)
	}

	return tui.Start(tui.Options{
		Controller:    ctrl,
		Auth:          client,
		Tokens:        tokens,
		Authenticated: authenticated,
		MarkdownStyle: opts.markdownStyle,
		Debug:         opts.debug,
	})
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.showVersion {
		printVersion(os.Stdout)
		return
	}

	logFile, err := setupLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logFile.Close()

	if err = run(opts); err != nil {
		slog.Error("Клиент завершился с ошибкой", "error", err)
		fmt.Fprintln(os.Stderr, err)
		logFile.Close()
		os.Exit(1)
	}
}
