package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/maynagashev/gophchat/server/internal/completion"
	"github.com/maynagashev/gophchat/server/internal/repository"
)

const (
	defaultServerPort        = "3000"
	defaultDBDriver          = repository.DriverSQLite
	defaultDatabaseDSN       = "gophchat.db"
	defaultTokenTTL          = time.Hour
	defaultOTPTTL            = 5 * time.Minute
	defaultCompletionBackend = backendProcess
	defaultWorkerCommand     = "ollama run mistral"
	defaultOpenAIBaseURL     = "http://localhost:11434/v1/"
	defaultOpenAIModel       = "mistral"
	defaultOpenAIToken       = "ollama"
	defaultMinioBucket       = "gophchat-archive"
	defaultEnvFile           = ".env"

	backendProcess = "process"
	backendOpenAI  = "openai"

	envConfigFile = "GOPHCHAT_CONFIG"
)

// config хранит конфигурацию сервера.
// Порядок применения: значения по умолчанию, TOML-файл, .env и окружение, флаги.
type config struct {
	Port              string        `toml:"port"`
	CertFile          string        `toml:"cert_file"`
	KeyFile           string        `toml:"key_file"`
	DBDriver          string        `toml:"db_driver"`
	DatabaseDSN       string        `toml:"database_dsn"`
	JWTSecret         string        `toml:"jwt_secret"`
	TokenTTL          time.Duration `toml:"token_ttl"`
	OTPTTL            time.Duration `toml:"otp_ttl"`
	CompletionBackend string        `toml:"completion_backend"`
	WorkerCommand     string        `toml:"worker_command"`
	OpenAIBaseURL     string        `toml:"openai_base_url"`
	OpenAIModel       string        `toml:"openai_model"`
	OpenAIToken       string        `toml:"openai_token"`
	SystemInstruction string        `toml:"system_instruction"`
	MinioEndpoint     string        `toml:"minio_endpoint"`
	MinioUser         string        `toml:"minio_user"`
	MinioPassword     string        `toml:"minio_password"`
	MinioBucket       string        `toml:"minio_bucket"`
	MinioUseSSL       bool          `toml:"minio_use_ssl"`
	Debug             bool          `toml:"debug"`
}

func defaultConfig() *config {
	return &config{
		Port:              defaultServerPort,
		DBDriver:          defaultDBDriver,
		DatabaseDSN:       defaultDatabaseDSN,
		TokenTTL:          defaultTokenTTL,
		OTPTTL:            defaultOTPTTL,
		CompletionBackend: defaultCompletionBackend,
		WorkerCommand:     defaultWorkerCommand,
		OpenAIBaseURL:     defaultOpenAIBaseURL,
		OpenAIModel:       defaultOpenAIModel,
		OpenAIToken:       defaultOpenAIToken,
		SystemInstruction: completion.DefaultSystemInstruction,
		MinioBucket:       defaultMinioBucket,
	}
}

// TLSEnabled - оба пути к сертификату и ключу заданы.
func (c *config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// option связывает флаг и переменную окружения с полем конфигурации.
type option struct {
	flag  string
	env   string
	usage string
	set   func(c *config, v string) error
	// isBool - флаг без значения (-debug).
	isBool bool
}

func str(field func(c *config) *string) func(*config, string) error {
	return func(c *config, v string) error {
		*field(c) = v
		return nil
	}
}

func dur(field func(c *config) *time.Duration) func(*config, string) error {
	return func(c *config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func boolean(field func(c *config) *bool) func(*config, string) error {
	return func(c *config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func opt(name, env, usage string, set func(*config, string) error) option {
	return option{flag: name, env: env, usage: usage, set: set}
}

func boolOpt(name, env, usage string, set func(*config, string) error) option {
	return option{flag: name, env: env, usage: usage, set: set, isBool: true}
}

var options = []option{
	opt("port", "SERVER_PORT", "порт HTTP(S)-сервера", str(func(c *config) *string { return &c.Port })),
	opt("cert-file", "TLS_CERT_FILE", "путь к TLS-сертификату", str(func(c *config) *string { return &c.CertFile })),
	opt("key-file", "TLS_KEY_FILE", "путь к TLS-ключу", str(func(c *config) *string { return &c.KeyFile })),
	opt("db-driver", "DB_DRIVER", "драйвер БД: postgres или sqlite", str(func(c *config) *string { return &c.DBDriver })),
	opt("database-dsn", "DATABASE_DSN", "строка подключения к БД", str(func(c *config) *string { return &c.DatabaseDSN })),
	opt("jwt-secret", "JWT_SECRET", "секрет подписи токенов (обязателен)", str(func(c *config) *string { return &c.JWTSecret })),
	opt("token-ttl", "TOKEN_TTL", "время жизни токена", dur(func(c *config) *time.Duration { return &c.TokenTTL })),
	opt("otp-ttl", "OTP_TTL", "время жизни кода сброса", dur(func(c *config) *time.Duration { return &c.OTPTTL })),
	opt("completion-backend", "COMPLETION_BACKEND", "генератор: process или openai",
		str(func(c *config) *string { return &c.CompletionBackend })),
	opt("worker-command", "WORKER_COMMAND", "команда генератора (process)",
		str(func(c *config) *string { return &c.WorkerCommand })),
	opt("openai-base-url", "OPENAI_BASE_URL", "адрес OpenAI-совместимого API",
		str(func(c *config) *string { return &c.OpenAIBaseURL })),
	opt("openai-model", "OPENAI_MODEL", "модель (openai)", str(func(c *config) *string { return &c.OpenAIModel })),
	opt("openai-token", "OPENAI_API_KEY", "токен API (openai)", str(func(c *config) *string { return &c.OpenAIToken })),
	opt("system-instruction", "SYSTEM_INSTRUCTION", "системная инструкция для вопросов о создателе",
		str(func(c *config) *string { return &c.SystemInstruction })),
	opt("minio-endpoint", "MINIO_ENDPOINT", "адрес MinIO (пусто - архив отключен)",
		str(func(c *config) *string { return &c.MinioEndpoint })),
	opt("minio-user", "MINIO_USER", "логин MinIO", str(func(c *config) *string { return &c.MinioUser })),
	opt("minio-password", "MINIO_PASSWORD", "пароль MinIO", str(func(c *config) *string { return &c.MinioPassword })),
	opt("minio-bucket", "MINIO_BUCKET", "бакет архивов", str(func(c *config) *string { return &c.MinioBucket })),
	boolOpt("minio-use-ssl", "MINIO_USE_SSL", "HTTPS для MinIO", boolean(func(c *config) *bool { return &c.MinioUseSSL })),
	boolOpt("debug", "DEBUG", "подробное логирование", boolean(func(c *config) *bool { return &c.Debug })),
}

// parseFlags собирает конфигурацию из всех источников и проверяет ее.
func parseFlags(args []string, lookupEnv func(string) (string, bool)) (*config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	configFile := fs.String("config", "", fmt.Sprintf("путь к TOML-файлу конфигурации (env: %s)", envConfigFile))
	envFile := fs.String("env-file", defaultEnvFile, "путь к .env файлу")
	for _, o := range options {
		usage := fmt.Sprintf("%s (env: %s)", o.usage, o.env)
		if o.isBool {
			fs.Bool(o.flag, false, usage)
		} else {
			fs.String(o.flag, "", usage)
		}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	path := *configFile
	if path == "" {
		path, _ = lookupEnv(envConfigFile)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации '%s': %w", path, err)
		}
	}

	dotenv, err := godotenv.Read(*envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения '%s': %w", *envFile, err)
	}

	// Окружение процесса важнее .env
	for _, o := range options {
		v, ok := lookupEnv(o.env)
		if !ok {
			v, ok = dotenv[o.env]
		}
		if !ok {
			continue
		}
		if err = o.set(cfg, v); err != nil {
			return nil, fmt.Errorf("некорректное значение %s=%q: %w", o.env, v, err)
		}
	}

	byFlag := make(map[string]option, len(options))
	for _, o := range options {
		byFlag[o.flag] = o
	}
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		o, ok := byFlag[f.Name]
		if !ok || flagErr != nil {
			return
		}
		if setErr := o.set(cfg, f.Value.String()); setErr != nil {
			flagErr = fmt.Errorf("некорректное значение -%s=%q: %w", f.Name, f.Value.String(), setErr)
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("не задан секрет подписи токенов (-jwt-secret или JWT_SECRET)")
	}
	if c.DBDriver != repository.DriverPostgres && c.DBDriver != repository.DriverSQLite {
		return fmt.Errorf("неподдерживаемый драйвер БД '%s'", c.DBDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("не указана строка подключения к БД (-database-dsn или DATABASE_DSN)")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("для HTTPS нужны оба параметра: -cert-file и -key-file")
	}
	switch c.CompletionBackend {
	case backendProcess:
		if len(strings.Fields(c.WorkerCommand)) == 0 {
			return errors.New("не задана команда генератора (-worker-command или WORKER_COMMAND)")
		}
	case backendOpenAI:
		if c.OpenAIBaseURL == "" || c.OpenAIModel == "" {
			return errors.New("для openai нужны -openai-base-url и -openai-model")
		}
	default:
		return fmt.Errorf("неизвестный генератор '%s'", c.CompletionBackend)
	}
	if c.TokenTTL <= 0 || c.OTPTTL <= 0 {
		return errors.New("время жизни токена и кода должно быть положительным")
	}
	return nil
}
