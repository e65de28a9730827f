package completion

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIConfig - параметры OpenAI-совместимого API (например, Ollama на /v1/).
type OpenAIConfig struct {
	BaseURL string
	Model   string
	Token   string
}

// OpenAIGenerator получает ответ потоком через OpenAI-совместимый API.
type OpenAIGenerator struct {
	llm llms.Model
}

// NewOpenAIGenerator создает клиент langchaingo.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.Token),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkerStart, err)
	}
	return NewModelGenerator(llm), nil
}

// NewModelGenerator оборачивает произвольную модель langchaingo.
func NewModelGenerator(llm llms.Model) *OpenAIGenerator {
	return &OpenAIGenerator{llm: llm}
}

// Generate запускает генерацию при первом обходе потока. Отмена контекста
// запроса генерацию не прерывает; прерывает только уход потребителя.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (Stream, error) {
	return once(func(yield func([]byte, error) bool) {
		genCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()

		chunks := make(chan []byte)
		done := make(chan error, 1)

		go func() {
			_, err := llms.GenerateFromSinglePrompt(genCtx, g.llm, prompt,
				llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
					select {
					case chunks <- bytes.Clone(chunk):
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				}),
			)
			close(chunks)
			done <- err
		}()

		for chunk := range chunks {
			if len(chunk) == 0 {
				continue
			}
			if !yield(chunk, nil) {
				cancel()
				for range chunks { //nolint:revive // дочитываем канал до закрытия
				}
				<-done
				return
			}
		}

		if err := <-done; err != nil {
			zap.S().Warnf("[OpenAI] Ошибка генерации: %v", err)
			yield(nil, fmt.Errorf("%w: %w", ErrWorkerExit, err))
		}
	}), nil
}
