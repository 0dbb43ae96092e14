package shell

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jobrunner/gdbee/internal/domain"
)

// command is a parsed meta command such as \copy 1:3 1:2.
type command struct {
	name string
	args []string
}

func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], `\`) || fields[0] == `\` {
		return command{}, fmt.Errorf("%q: %w", line, domain.ErrInvalidInput)
	}
	return command{name: strings.TrimPrefix(fields[0], `\`), args: fields[1:]}, nil
}

func (c command) wantArgs(n int, usage string) error {
	if len(c.args) != n {
		return fmt.Errorf("usage: \\%s %s: %w", c.name, usage, domain.ErrInvalidInput)
	}
	return nil
}

const helpText = `Statements end with ";" and may span several lines.

  \c <path>              connect to a geodatabase
  \d [item]              list catalog items, or the columns of one item
  \more                  fetch the next chunk of rows
  \end                   fetch all remaining rows
  \copy r1:r2 c1:c2      copy a cell range (1-based, inclusive) to the clipboard
  \export <format>       export the full result (%s)
  \geom on|off           include the geometry column in new results
  \dialect <name>        set the SQL dialect (SQLITE, OGRSQL)
  \o <file>              run the statement stored in a file
  \w <file>              save the last statement to a file
  \q                     quit`

func (s *Shell) dispatch(ctx context.Context, cmd command) error {
	switch cmd.name {
	case "q", "quit":
		return errQuit
	case "?", "h", "help":
		fmt.Fprintf(s.out, helpText+"\n", strings.Join(s.opts.Formats, ", "))
		return nil
	case "c", "connect":
		if err := cmd.wantArgs(1, "<path>"); err != nil {
			return err
		}
		return s.connect(ctx, cmd.args[0])
	case "d":
		return s.describe(ctx, cmd.args)
	case "more":
		return s.more(ctx)
	case "end":
		return s.end(ctx)
	case "copy":
		return s.copy(ctx, cmd)
	case "export":
		if err := cmd.wantArgs(1, "<format>"); err != nil {
			return err
		}
		return s.export(ctx, cmd.args[0])
	case "geom":
		return s.setGeometry(cmd)
	case "dialect":
		if err := cmd.wantArgs(1, "<name>"); err != nil {
			return err
		}
		d, err := domain.ParseDialect(cmd.args[0])
		if err != nil {
			return err
		}
		s.dialect = string(d)
		fmt.Fprintf(s.out, "Dialect set to %s\n", d)
		return nil
	case "o":
		if err := cmd.wantArgs(1, "<file>"); err != nil {
			return err
		}
		return s.runFile(ctx, cmd.args[0])
	case "w":
		if err := cmd.wantArgs(1, "<file>"); err != nil {
			return err
		}
		return s.saveQuery(cmd.args[0])
	default:
		return fmt.Errorf("unknown command \\%s: %w", cmd.name, domain.ErrUnsupported)
	}
}

func (s *Shell) describe(ctx context.Context, args []string) error {
	if s.session == "" {
		return domain.ErrNotConnected
	}
	catalog, err := s.wb.Catalog(ctx, s.session)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		PrintCatalog(s.out, catalog)
		return nil
	}

	item, ok := catalog.Item(args[0])
	if !ok {
		return fmt.Errorf("%q: %w", args[0], domain.ErrItemNotFound)
	}
	printItem(s.out, item)
	return nil
}

func (s *Shell) more(ctx context.Context) error {
	if s.session == "" {
		return domain.ErrNotConnected
	}
	page, err := s.wb.FetchMore(ctx, s.session)
	if err != nil {
		return err
	}
	if len(page.Rows) == 0 {
		fmt.Fprintf(s.out, "All %s rows fetched\n", humanize.Comma(int64(page.Total)))
		return nil
	}
	PrintPage(s.out, page)
	return nil
}

func (s *Shell) end(ctx context.Context) error {
	if s.session == "" {
		return domain.ErrNotConnected
	}
	page, err := s.wb.LoadAll(ctx, s.session)
	if err != nil {
		return err
	}
	PrintPage(s.out, page)
	return nil
}

func (s *Shell) copy(ctx context.Context, cmd command) error {
	if err := cmd.wantArgs(2, "r1:r2 c1:c2"); err != nil {
		return err
	}
	if s.session == "" {
		return domain.ErrNotConnected
	}

	top, bottom, err := parseRange(cmd.args[0])
	if err != nil {
		return err
	}
	left, right, err := parseRange(cmd.args[1])
	if err != nil {
		return err
	}
	sel := domain.Selection{{TopRow: top, BottomRow: bottom, LeftColumn: left, RightColumn: right}}

	text, err := s.wb.Copy(ctx, s.session, sel)
	if err != nil {
		return err
	}

	if s.clipboard != nil {
		err := s.clipboard.WriteText(text)
		if err == nil {
			fmt.Fprintf(s.out, "Copied %s to the clipboard\n", humanize.Bytes(uint64(len(text))))
			return nil
		}
		s.logger.Debug("clipboard not available", "error", err)
	}
	fmt.Fprintln(s.out, strings.TrimRight(text, "\n"))
	return nil
}

func (s *Shell) export(ctx context.Context, format string) error {
	if s.session == "" {
		return domain.ErrNotConnected
	}
	text, err := s.wb.Export(ctx, s.session, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, text)
	return nil
}

func (s *Shell) setGeometry(cmd command) error {
	if err := cmd.wantArgs(1, "on|off"); err != nil {
		return err
	}
	switch strings.ToLower(cmd.args[0]) {
	case "on":
		s.includeGeometry = true
	case "off":
		s.includeGeometry = false
	default:
		return fmt.Errorf("usage: \\geom on|off: %w", domain.ErrInvalidInput)
	}
	fmt.Fprintf(s.out, "Geometry column %s for new results\n", strings.ToLower(cmd.args[0]))
	return nil
}

func (s *Shell) runFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.runQuery(ctx, string(data))
}

func (s *Shell) saveQuery(path string) error {
	if s.lastQuery == "" {
		return fmt.Errorf("no statement to save: %w", domain.ErrInvalidInput)
	}
	if err := os.WriteFile(path, []byte(s.lastQuery+"\n"), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved to %s\n", path)
	return nil
}

// parseRange parses a 1-based inclusive range "a:b" or a single number into 0-based indexes.
func parseRange(arg string) (int, int, error) {
	from, to, found := strings.Cut(arg, ":")
	if !found {
		to = from
	}

	lo, err := strconv.Atoi(from)
	if err != nil || lo < 1 {
		return 0, 0, fmt.Errorf("range %q: %w", arg, domain.ErrInvalidInput)
	}
	hi, err := strconv.Atoi(to)
	if err != nil || hi < 1 {
		return 0, 0, fmt.Errorf("range %q: %w", arg, domain.ErrInvalidInput)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo - 1, hi - 1, nil
}
