package clipboard

import (
	"errors"
	"testing"

	"github.com/jobrunner/gdbee/internal/domain"
)

func TestSystemWriteText(t *testing.T) {
	writeErr := errors.New("xclip: exit status 1")

	tests := []struct {
		name        string
		unsupported bool
		writeErr    error
		wantErr     error
		wantWritten string
	}{
		{"writes text", false, nil, nil, "Zwicky Ave"},
		{"no clipboard utility", true, nil, domain.ErrClipboardNotAllowed, ""},
		{"write failure", false, writeErr, domain.ErrClipboardNotAllowed, "Zwicky Ave"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var written string
			s := &System{
				write: func(text string) error {
					written = text
					return tt.writeErr
				},
				unsupported: func() bool { return tt.unsupported },
			}

			err := s.WriteText("Zwicky Ave")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("WriteText() error = %v, want %v", err, tt.wantErr)
			}
			if written != tt.wantWritten {
				t.Errorf("written = %q, want %q", written, tt.wantWritten)
			}
			if s.Available() == tt.unsupported {
				t.Errorf("Available() = %v, want %v", s.Available(), !tt.unsupported)
			}
		})
	}
}

func TestBuffer(t *testing.T) {
	var b Buffer
	if err := b.WriteText("Name\tType\n"); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if got := b.Text(); got != "Name\tType\n" {
		t.Errorf("Text() = %q, want %q", got, "Name\tType\n")
	}
}
