package completion

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/zap"
)

const chunkSize = 4096

// ProcessGenerator запускает отдельный процесс на каждый запрос,
// пишет промпт в stdin и читает stdout до завершения процесса.
//
// Процесс не привязан к контексту запроса: отключение клиента его не прерывает,
// а недочитанный вывод сливается до конца. Таймаута нет.
type ProcessGenerator struct {
	name string
	args []string
}

// NewProcessGenerator создает генератор для команды argv (например, "ollama", "run", "mistral").
func NewProcessGenerator(argv []string) (*ProcessGenerator, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrEmptyCommand
	}
	return &ProcessGenerator{name: argv[0], args: argv[1:]}, nil
}

// Generate запускает процесс и возвращает поток его stdout.
func (g *ProcessGenerator) Generate(_ context.Context, prompt string) (Stream, error) {
	cmd := exec.Command(g.name, g.args...) //nolint:gosec,noctx // команда задается конфигурацией сервера
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin: %w", ErrWorkerStart, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout: %w", ErrWorkerStart, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr: %w", ErrWorkerStart, err)
	}

	if err = cmd.Start(); err != nil {
		zap.S().Errorf("[Worker] Ошибка запуска '%s': %v", g.name, err)
		return nil, fmt.Errorf("%w: %w", ErrWorkerStart, err)
	}
	pid := cmd.Process.Pid
	zap.S().Debugf("[Worker] Процесс '%s' запущен (pid %d)", g.name, pid)

	go func() {
		if _, writeErr := io.WriteString(stdin, prompt); writeErr != nil {
			zap.S().Warnf("[Worker] pid %d: ошибка записи промпта: %v", pid, writeErr)
		}
		if closeErr := stdin.Close(); closeErr != nil {
			zap.S().Debugf("[Worker] pid %d: ошибка закрытия stdin: %v", pid, closeErr)
		}
	}()

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			zap.S().Warnf("[Worker] pid %d stderr: %s", pid, scanner.Text())
		}
	}()

	return once(func(yield func([]byte, error) bool) {
		readErr, stopped := pump(stdout, yield)
		if stopped {
			// Потребитель ушел раньше: дочитываем вывод, чтобы процесс доработал и вышел.
			_, _ = io.Copy(io.Discard, stdout)
		}

		// stderr нужно дочитать до Wait: Wait закрывает каналы.
		<-stderrDone
		waitErr := cmd.Wait()
		zap.S().Debugf("[Worker] pid %d завершен: %v", pid, waitErr)

		if stopped {
			return
		}
		if readErr != nil {
			yield(nil, fmt.Errorf("ошибка чтения вывода генератора: %w", readErr))
			return
		}
		if waitErr != nil {
			yield(nil, fmt.Errorf("%w: %w", ErrWorkerExit, waitErr))
		}
	}), nil
}

// pump отдает stdout фрагментами. stopped - потребитель прекратил обход.
func pump(r io.Reader, yield func([]byte, error) bool) (readErr error, stopped bool) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 && !yield(bytes.Clone(buf[:n]), nil) {
			return nil, true
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, false
			}
			return err, false
		}
	}
}

// ErrEmptyCommand - команда генератора не задана.
var ErrEmptyCommand = errors.New("команда генератора не задана")
