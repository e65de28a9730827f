// Package completion передает сообщение пользователя внешнему генератору текста
// и ретранслирует его вывод в HTTP-поток по мере поступления.
package completion

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
)

// Stream - ленивая конечная последовательность фрагментов вывода генератора.
// Поток одноразовый: повторный обход сразу отдает ErrStreamConsumed.
type Stream = iter.Seq2[[]byte, error]

// Generator запускает генерацию по готовому промпту.
// Ошибка запуска возвращается из Generate и оборачивает ErrWorkerStart;
// ошибки после запуска приходят через поток.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Stream, error)
}

// once оборачивает поток так, чтобы его можно было обойти только один раз.
func once(s Stream) Stream {
	var used atomic.Bool
	return func(yield func([]byte, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(nil, ErrStreamConsumed)
			return
		}
		s(yield)
	}
}

var (
	ErrEmptyMessage   = errors.New("сообщение обязательно")
	ErrWorkerStart    = errors.New("не удалось запустить генератор")
	ErrWorkerExit     = errors.New("генератор завершился с ошибкой")
	ErrStreamConsumed = errors.New("поток генерации уже прочитан")
)
