package completion

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// ErrorMarker пишется в поток, если генератор не запустился или упал, не выдав ни байта.
const ErrorMarker = "❌ Ошибка генерации ответа"

// Gateway собирает промпт, запускает генератор и ретранслирует вывод.
type Gateway struct {
	generator         Generator
	systemInstruction string
}

// NewGateway создает шлюз поверх генератора.
func NewGateway(generator Generator, systemInstruction string) *Gateway {
	return &Gateway{generator: generator, systemInstruction: systemInstruction}
}

// Validate проверяет сообщение до отправки заголовков ответа.
func (g *Gateway) Validate(message string) error {
	if message == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Relay пишет вывод генератора в w по мере поступления, сбрасывая буфер после
// каждого фрагмента, если w это поддерживает. Уже отправленное не отзывается.
// Возвращает число записанных байт генерации.
//
// Если клиент отключился, генерация дочитывается без записи.
func (g *Gateway) Relay(ctx context.Context, message string, w io.Writer) (int64, error) {
	if err := g.Validate(message); err != nil {
		return 0, err
	}

	stream, err := g.generator.Generate(ctx, BuildPrompt(g.systemInstruction, message))
	if err != nil {
		zap.S().Errorf("[Gateway] %v", err)
		writeMarker(w)
		return 0, err
	}

	flusher, _ := w.(http.Flusher)
	var (
		written   int64
		writeErr  error
		streamErr error
	)

	for chunk, chunkErr := range stream {
		if chunkErr != nil {
			streamErr = chunkErr
			continue
		}
		if writeErr != nil {
			continue
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			writeErr = err
			zap.S().Infof("[Gateway] Клиент отключился после %d байт, дочитываем генерацию: %v", written, err)
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if streamErr != nil {
		zap.S().Warnf("[Gateway] Ошибка генерации после %d байт: %v", written, streamErr)
		if written == 0 && writeErr == nil {
			writeMarker(w)
		}
		return written, streamErr
	}
	if writeErr != nil {
		return written, fmt.Errorf("ошибка записи ответа: %w", writeErr)
	}

	zap.S().Debugf("[Gateway] Ответ отправлен, %d байт", written)
	return written, nil
}

func writeMarker(w io.Writer) {
	if _, err := io.WriteString(w, ErrorMarker); err != nil {
		zap.S().Debugf("[Gateway] Не удалось записать маркер ошибки: %v", err)
		return
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
