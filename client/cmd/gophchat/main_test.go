package main

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/gophchat/client/internal/api"
	"github.com/maynagashev/gophchat/client/internal/session"
)

func envFrom(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestParseOptions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name       string
		args       []string
		env        map[string]string
		wantURL    string
		wantSource string
		wantPlain  bool
	}{
		{
			name:       "По умолчанию",
			wantURL:    "http://localhost:3000",
			wantSource: "по умолчанию",
		},
		{
			name:       "Переменная окружения",
			env:        map[string]string{serverURLEnvVar: "http://env:9000"},
			wantURL:    "http://env:9000",
			wantSource: "переменная окружения (" + serverURLEnvVar + ")",
		},
		{
			name:       "Флаг важнее переменной",
			args:       []string{"-server-url", "http://flag:1", "-plain"},
			env:        map[string]string{serverURLEnvVar: "http://env:9000"},
			wantURL:    "http://flag:1",
			wantSource: "флаг -server-url",
			wantPlain:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseOptions(tt.args, envFrom(tt.env))
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, opts.serverURL)
			assert.Equal(t, tt.wantSource, opts.urlSource)
			assert.Equal(t, tt.wantPlain, opts.plain)
			assert.Equal(t, "auto", opts.markdownStyle)
			assert.Equal(t, "token", filepath.Base(opts.tokenFile))
		})
	}
}

func TestParseOptions_Errors(t *testing.T) {
	_, err := parseOptions([]string{"-server-url", ""}, envFrom(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL сервера не может быть пустым")

	_, err = parseOptions([]string{"-unknown"}, envFrom(nil))
	require.Error(t, err)

	_, err = parseOptions([]string{"-h"}, envFrom(nil))
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestParseOptions_TokenFile(t *testing.T) {
	opts, err := parseOptions([]string{"-token-file", "/tmp/x/token", "-style", "notty", "-debug"}, envFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x/token", opts.tokenFile)
	assert.Equal(t, "notty", opts.markdownStyle)
	assert.True(t, opts.debug)
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "GophChat Client")
	assert.Contains(t, buf.String(), "Version: "+version)
}

func TestRestoreSession(t *testing.T) {
	tokens := session.NewStore(filepath.Join(t.TempDir(), "token"))
	client := api.NewHTTPClient("http://localhost")

	assert.False(t, restoreSession(client, tokens))
	assert.Empty(t, client.AuthToken())

	require.NoError(t, tokens.Save("saved-token"))
	assert.True(t, restoreSession(client, tokens))
	assert.Equal(t, "saved-token", client.AuthToken())
}
