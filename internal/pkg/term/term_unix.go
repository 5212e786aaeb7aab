//go:build unix

package term

import "golang.org/x/term"

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func terminalSize(fd int) (int, int, error) {
	return term.GetSize(fd)
}
