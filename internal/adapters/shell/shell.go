// Package shell provides the interactive query shell.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

const (
	promptReady    = "gdbee> "
	promptContinue = "   ..> "
)

// errQuit ends the read loop.
var errQuit = errors.New("quit")

// Options configures a shell.
type Options struct {
	HistoryFile     string   // readline history, in-memory when empty
	Dialect         string   // Initial dialect override, session default when empty
	IncludeGeometry bool     // Initial include-geometry setting
	Formats         []string // Export formats listed by \?
}

// Shell reads statements and meta commands and runs them against a workbench session.
type Shell struct {
	wb        input.Workbench
	clipboard output.Clipboard
	out       io.Writer
	logger    *slog.Logger
	opts      Options

	session         string
	path            string
	dialect         string
	includeGeometry bool
	lastQuery       string
	pending         strings.Builder
}

// New creates a shell writing results to out. clipboard may be nil.
func New(wb input.Workbench, clipboard output.Clipboard, out io.Writer, logger *slog.Logger, opts Options) *Shell {
	return &Shell{
		wb:              wb,
		clipboard:       clipboard,
		out:             out,
		logger:          logger,
		opts:            opts,
		dialect:         opts.Dialect,
		includeGeometry: opts.IncludeGeometry,
	}
}

// Run connects to path when given and reads lines until \q, EOF or an interrupt on an empty line.
func (s *Shell) Run(ctx context.Context, path string) error {
	if path != "" {
		if err := s.connect(ctx, path); err != nil {
			s.printError(err)
		}
	}
	defer s.Close(ctx)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptReady,
		HistoryFile:     s.opts.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintln(s.out, `Type \? for help, \q to quit. Statements end with ";".`)

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 && s.pending.Len() == 0 {
				return nil
			}
			s.pending.Reset()
			rl.SetPrompt(promptReady)
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.printError(err)
		}
		rl.SetPrompt(s.Prompt())
	}
}

// Prompt returns the prompt for the next line.
func (s *Shell) Prompt() string {
	if s.pending.Len() > 0 {
		return promptContinue
	}
	return promptReady
}

// Execute handles one input line. SQL accumulates until a line ends with ";".
func (s *Shell) Execute(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)

	if s.pending.Len() == 0 {
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, `\`) {
			cmd, err := parseCommand(trimmed)
			if err != nil {
				return err
			}
			return s.dispatch(ctx, cmd)
		}
		if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			return errQuit
		}
	}

	s.pending.WriteString(line)
	s.pending.WriteByte('\n')
	if !strings.HasSuffix(trimmed, ";") {
		return nil
	}

	query := s.pending.String()
	s.pending.Reset()
	return s.runQuery(ctx, query)
}

// Close closes the connected session.
func (s *Shell) Close(ctx context.Context) {
	if s.session == "" {
		return
	}
	if err := s.wb.CloseSession(ctx, s.session); err != nil {
		s.logger.Warn("failed to close session", "id", s.session, "error", err)
	}
	s.session = ""
	s.path = ""
}

func (s *Shell) connect(ctx context.Context, path string) error {
	info, err := s.wb.OpenSession(ctx, path)
	if err != nil {
		return err
	}
	s.Close(ctx)

	s.session = info.ID
	s.path = info.Path
	fmt.Fprintf(s.out, "Connected to %s (%d items)\n", info.Path, info.Items)
	return nil
}

func (s *Shell) runQuery(ctx context.Context, query string) error {
	if s.session == "" {
		return domain.ErrNotConnected
	}

	includeGeometry := s.includeGeometry
	summary, err := s.wb.Run(ctx, s.session, input.RunRequest{
		Query:           query,
		Dialect:         s.dialect,
		IncludeGeometry: &includeGeometry,
	})
	if err != nil {
		return err
	}
	s.lastQuery = strings.TrimSpace(query)

	page, err := s.wb.Page(ctx, s.session, 0, summary.TotalRows)
	if err != nil {
		return err
	}
	PrintPage(s.out, page)
	fmt.Fprintln(s.out, summary.Status())
	return nil
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.out, "Error: %v\n", err)
}
