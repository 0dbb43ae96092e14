// Package clipboard provides the system clipboard adapter.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

// System writes to the operating system clipboard.
type System struct {
	write       func(string) error
	unsupported func() bool
}

var _ output.Clipboard = (*System)(nil)

// New creates a system clipboard adapter.
func New() *System {
	return &System{
		write:       clipboard.WriteAll,
		unsupported: func() bool { return clipboard.Unsupported },
	}
}

// Available reports whether a clipboard utility was found.
func (s *System) Available() bool {
	return !s.unsupported()
}

// WriteText implements output.Clipboard.
func (s *System) WriteText(text string) error {
	if s.unsupported() {
		return domain.ErrClipboardNotAllowed
	}
	if err := s.write(text); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrClipboardNotAllowed, err)
	}
	return nil
}

// Buffer keeps the last copied text in memory. It backs sessions that have no system clipboard,
// such as those opened over HTTP.
type Buffer struct {
	text string
}

var _ output.Clipboard = (*Buffer)(nil)

// WriteText implements output.Clipboard.
func (b *Buffer) WriteText(text string) error {
	b.text = text
	return nil
}

// Text returns the last copied text.
func (b *Buffer) Text() string {
	return b.text
}
