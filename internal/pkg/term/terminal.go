// Package term — стандартные диалоги и область просмотра терминального клиента.
package term

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

// RowHeight — условная высота строки терминала в пикселях.
// Позволяет применять к терминалу пороги, заданные для веб-просмотра.
const RowHeight = 20

// Terminal реализует стандартные диалоги (alert/confirm) и ввод строк.
type Terminal struct {
	in    *bufio.Reader
	out   io.Writer
	fd    int
	isTTY bool
}

// NewTerminal создает Terminal поверх произвольных потоков.
// Если in — *os.File, подключенный к терминалу, доступны размеры окна.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		in:  bufio.NewReader(in),
		out: out,
		fd:  -1,
	}
	if f, ok := in.(*os.File); ok {
		t.fd = int(f.Fd())
		t.isTTY = isTerminal(t.fd)
	}
	return t
}

// Alert выводит сообщение.
func (t *Terminal) Alert(_ context.Context, message string) error {
	if _, err := fmt.Fprintf(t.out, "[!] %s\n", message); err != nil {
		return xerrors.Errorf("failed to show alert: %w", err)
	}
	return nil
}

// Confirm задает вопрос и ждет ответа да/нет.
func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	answer, err := t.ReadLine(ctx, message+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "д", "да":
		return true, nil
	default:
		return false, nil
	}
}

// ReadLine выводит приглашение и читает строку без завершающего перевода строки.
// Возвращает io.EOF, когда ввод закончился.
func (t *Terminal) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt != "" {
		fmt.Fprint(t.out, prompt)
	}

	line, err := t.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if err == io.EOF {
			return "", io.EOF
		}
		return "", xerrors.Errorf("failed to read line: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Height возвращает высоту окна терминала в условных пикселях.
func (t *Terminal) Height() (int, error) {
	if !t.isTTY {
		return 0, xerrors.New("stdin is not a terminal")
	}
	_, rows, err := terminalSize(t.fd)
	if err != nil {
		return 0, xerrors.Errorf("failed to get terminal size: %w", err)
	}
	return rows * RowHeight, nil
}

// Width возвращает ширину окна терминала в символах или fallback.
func (t *Terminal) Width(fallback int) int {
	if !t.isTTY {
		return fallback
	}
	cols, _, err := terminalSize(t.fd)
	if err != nil || cols <= 0 {
		return fallback
	}
	return cols
}

// Interactive сообщает, подключен ли ввод к терминалу.
func (t *Terminal) Interactive() bool { return t.isTTY }

// Out возвращает поток вывода.
func (t *Terminal) Out() io.Writer { return t.out }
