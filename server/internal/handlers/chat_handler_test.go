package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/maynagashev/gophchat/server/internal/completion"
	"github.com/maynagashev/gophchat/server/internal/handlers"
)

// scriptedGenerator отдает фиксированные фрагменты.
type scriptedGenerator struct {
	chunks   []string
	startErr error
}

func (g scriptedGenerator) Generate(_ context.Context, _ string) (completion.Stream, error) {
	if g.startErr != nil {
		return nil, g.startErr
	}
	return func(yield func([]byte, error) bool) {
		for _, c := range g.chunks {
			if !yield([]byte(c), nil) {
				return
			}
		}
	}, nil
}

func setupChatRouter(gen completion.Generator) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/chat", handlers.NewChatHandler(completion.NewGateway(gen, "")).Chat)
	return r
}

func TestChatHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		gen            completion.Generator
		expectedStatus int
		expectedType   string
		expectedBody   string
	}{
		{
			name:           "Ответ приходит потоком",
			body:           `{"message":"hi"}`,
			gen:            scriptedGenerator{chunks: []string{"Hel", "lo"}},
			expectedStatus: http.StatusOK,
			expectedType:   "text/event-stream",
			expectedBody:   "Hello",
		},
		{
			name:           "Пустое сообщение",
			body:           `{"message":""}`,
			gen:            scriptedGenerator{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "application/json",
		},
		{
			name:           "Неверный JSON",
			body:           `{`,
			gen:            scriptedGenerator{},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "application/json",
		},
		{
			name:           "Генератор не запустился",
			body:           `{"message":"hi"}`,
			gen:            scriptedGenerator{startErr: completion.ErrWorkerStart},
			expectedStatus: http.StatusOK,
			expectedType:   "text/event-stream",
			expectedBody:   completion.ErrorMarker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, setupChatRouter(tt.gen), http.MethodPost, "/chat", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedType, rec.Header().Get("Content-Type"))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedBody, rec.Body.String())
				assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
			} else {
				assert.NotEmpty(t, decodeError(t, rec))
			}
		})
	}
}
