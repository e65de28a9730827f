package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envMap - подмена os.LookupEnv.
func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// noEnvFile - флаг, указывающий на заведомо отсутствующий .env.
func noEnvFile(t *testing.T) string {
	t.Helper()
	return "-env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestParseFlags(t *testing.T) {
	t.Run("Значения по умолчанию", func(t *testing.T) {
		cfg, err := parseFlags([]string{noEnvFile(t)}, envMap(map[string]string{"JWT_SECRET": "s"}))
		require.NoError(t, err)
		assert.Equal(t, "3000", cfg.Port)
		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.Equal(t, "gophchat.db", cfg.DatabaseDSN)
		assert.Equal(t, time.Hour, cfg.TokenTTL)
		assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
		assert.Equal(t, "process", cfg.CompletionBackend)
		assert.Equal(t, "ollama run mistral", cfg.WorkerCommand)
		assert.False(t, cfg.TLSEnabled())
		assert.Empty(t, cfg.MinioEndpoint)
	})

	t.Run("Все параметры из флагов", func(t *testing.T) {
		cfg, err := parseFlags([]string{
			noEnvFile(t),
			"-port=8080", "-cert-file=cert.pem", "-key-file=key.pem",
			"-db-driver=postgres", "-database-dsn=postgres://u:p@localhost/db",
			"-jwt-secret=flag-secret", "-token-ttl=30m", "-debug",
		}, envMap(nil))
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.True(t, cfg.TLSEnabled())
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "flag-secret", cfg.JWTSecret)
		assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
		assert.True(t, cfg.Debug)
	})

	t.Run("Все параметры из переменных окружения", func(t *testing.T) {
		cfg, err := parseFlags([]string{noEnvFile(t)}, envMap(map[string]string{
			"SERVER_PORT":        "9090",
			"JWT_SECRET":         "env-secret",
			"COMPLETION_BACKEND": "openai",
			"OPENAI_MODEL":       "llama3",
			"MINIO_ENDPOINT":     "localhost:9000",
			"MINIO_USE_SSL":      "true",
			"OTP_TTL":            "1m",
		}))
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "env-secret", cfg.JWTSecret)
		assert.Equal(t, "openai", cfg.CompletionBackend)
		assert.Equal(t, "llama3", cfg.OpenAIModel)
		assert.Equal(t, "localhost:9000", cfg.MinioEndpoint)
		assert.True(t, cfg.MinioUseSSL)
		assert.Equal(t, time.Minute, cfg.OTPTTL)
	})

	t.Run("Флаг важнее окружения", func(t *testing.T) {
		cfg, err := parseFlags([]string{noEnvFile(t), "-port=1111"},
			envMap(map[string]string{"SERVER_PORT": "2222", "JWT_SECRET": "s"}))
		require.NoError(t, err)
		assert.Equal(t, "1111", cfg.Port)
	})

	t.Run("Файл конфигурации и .env", func(t *testing.T) {
		dir := t.TempDir()
		tomlPath := filepath.Join(dir, "server.toml")
		require.NoError(t, os.WriteFile(tomlPath, []byte(
			"port = \"4000\"\njwt_secret = \"toml-secret\"\nworker_command = \"cat\"\ntoken_ttl = \"2h\"\n"), 0o600))
		envPath := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("SERVER_PORT=5000\nDB_DRIVER=sqlite\n"), 0o600))

		cfg, err := parseFlags([]string{"-config=" + tomlPath, "-env-file=" + envPath}, envMap(nil))
		require.NoError(t, err)
		assert.Equal(t, "5000", cfg.Port, ".env важнее файла конфигурации")
		assert.Equal(t, "toml-secret", cfg.JWTSecret)
		assert.Equal(t, "cat", cfg.WorkerCommand)
		assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	})

	t.Run("Файл конфигурации из GOPHCHAT_CONFIG", func(t *testing.T) {
		tomlPath := filepath.Join(t.TempDir(), "server.toml")
		require.NoError(t, os.WriteFile(tomlPath, []byte("jwt_secret = \"from-file\"\n"), 0o600))

		cfg, err := parseFlags([]string{noEnvFile(t)}, envMap(map[string]string{envConfigFile: tomlPath}))
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.JWTSecret)
	})
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{name: "Нет секрета", env: map[string]string{}, want: "секрет"},
		{
			name: "Неизвестный драйвер",
			env:  map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "mysql"},
			want: "драйвер",
		},
		{
			name: "Только сертификат без ключа",
			args: []string{"-cert-file=cert.pem"},
			env:  map[string]string{"JWT_SECRET": "s"},
			want: "HTTPS",
		},
		{
			name: "Неизвестный генератор",
			env:  map[string]string{"JWT_SECRET": "s", "COMPLETION_BACKEND": "magic"},
			want: "генератор",
		},
		{
			name: "Некорректная длительность",
			env:  map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "soon"},
			want: "TOKEN_TTL",
		},
		{
			name: "Отсутствующий файл конфигурации",
			args: []string{"-config=/nonexistent/server.toml"},
			env:  map[string]string{"JWT_SECRET": "s"},
			want: "файла конфигурации",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{noEnvFile(t)}, tt.args...)
			_, err := parseFlags(args, envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
