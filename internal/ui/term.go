package ui

import "golang.org/x/term"

// IsTTY reports whether fd is attached to a terminal. The presenter
// factory uses it to decide between the styled feed and plain output.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}
