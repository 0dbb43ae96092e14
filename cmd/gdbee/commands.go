package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobrunner/gdbee/internal/adapters/clipboard"
	"github.com/jobrunner/gdbee/internal/adapters/shell"
	"github.com/jobrunner/gdbee/internal/adapters/storage"
	"github.com/jobrunner/gdbee/internal/app"
	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

var queryCmd = &cobra.Command{
	Use:   "query [SQL]",
	Short: "Run one statement and print or export the result",
	Long: `Run one statement against the geodatabase given by --gdb.

The statement is read from the arguments, or from stdin when none are given.
Without --export the requested chunk is printed as a table; with --export the
full result is rendered in that format.`,
	Example: `  gdbee query --gdb roads.gpkg "SELECT * FROM roads"
  gdbee query --gdb roads.gpkg --export wkt "SELECT geom FROM roads"
  gdbee query --gdb roads.gpkg --page 3 < report.sql`,
	RunE: runQueryCmd,
}

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List the tables and feature classes of a geodatabase",
	Args:  cobra.NoArgs,
	RunE:  runLayersCmd,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources [dir]",
	Short: "List available geodatabases",
	Long: `List the geodatabases of the configured remote source, or the
geodatabase files below dir for local sources.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSourcesCmd,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive query shell",
	Args:  cobra.NoArgs,
	RunE:  runShellCmd,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query workbench",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	queryCmd.Flags().Bool("no-geometry", false, "leave the geometry column out of the result")
	queryCmd.Flags().String("export", "", "export the full result (wkt, arcpy, dataframe, markdown)")
	queryCmd.Flags().Int("page", 1, "chunk to print, 1-based")

	shellCmd.Flags().String("history", defaultHistoryFile(), "readline history file")
	shellCmd.Flags().Bool("no-geometry", false, "start with the geometry column switched off")

	serveCmd.Flags().String("host", "127.0.0.1", "server host")
	serveCmd.Flags().Int("port", 8080, "server port")
	serveCmd.Flags().StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")
	serveCmd.Flags().Bool("tls", false, "enable TLS")
	serveCmd.Flags().StringSlice("tls-domains", nil, "TLS domains")
	serveCmd.Flags().String("tls-email", "", "TLS email for Let's Encrypt")
	serveCmd.Flags().Bool("watch", false, "reload catalogs when connected files change")

	bindFlag("server.host", serveCmd, "host")
	bindFlag("server.port", serveCmd, "port")
	bindFlag("server.cors.allowed_origins", serveCmd, "cors")
	bindFlag("tls.enabled", serveCmd, "tls")
	bindFlag("tls.domains", serveCmd, "tls-domains")
	bindFlag("tls.email", serveCmd, "tls-email")
	bindFlag("geodatabase.watch", serveCmd, "watch")
}

// runOnce wires the application for a one-shot command and opens the --gdb session.
func runOnce(ctx context.Context) (*app.App, input.SessionInfo, error) {
	application, err := setup(ctx, os.Stderr)
	if err != nil {
		return nil, input.SessionInfo{}, err
	}

	path := application.Config.Geodatabase.Path
	if path == "" {
		return nil, input.SessionInfo{}, fmt.Errorf("--gdb is required: %w", domain.ErrInvalidInput)
	}

	info, err := application.Workbench.OpenSession(ctx, path)
	if err != nil {
		return nil, input.SessionInfo{}, err
	}
	return application, info, nil
}

func finish(application *app.App) {
	application.Workbench.CloseAll()
	if err := application.WriteMetrics(); err != nil {
		application.Logger.Warn("failed to write metrics", "error", err)
	}
}

func runQueryCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	query, err := readQuery(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	noGeometry, _ := cmd.Flags().GetBool("no-geometry")
	format, _ := cmd.Flags().GetString("export")
	pageNumber, _ := cmd.Flags().GetInt("page")
	if pageNumber < 1 {
		return fmt.Errorf("--page must be at least 1: %w", domain.ErrInvalidInput)
	}

	application, info, err := runOnce(ctx)
	if err != nil {
		return err
	}
	defer finish(application)

	req := input.RunRequest{Query: query}
	if noGeometry {
		include := false
		req.IncludeGeometry = &include
	}

	wb := application.Workbench
	summary, err := wb.Run(ctx, info.ID, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != "" {
		text, err := wb.Export(ctx, info.ID, format)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		return nil
	}

	chunk := application.Config.Query.ChunkSize
	page, err := fetchChunk(ctx, wb, info.ID, pageNumber, chunk)
	if err != nil {
		return err
	}

	shell.PrintPage(out, page)
	fmt.Fprintln(cmd.ErrOrStderr(), summary.Status())
	return nil
}

// fetchChunk materializes chunks until the 1-based chunk n is available and returns it.
func fetchChunk(ctx context.Context, wb input.Workbench, id string, n, chunk int) (input.ResultPage, error) {
	offset := (n - 1) * chunk

	page, err := wb.Page(ctx, id, offset, chunk)
	if err != nil {
		return input.ResultPage{}, err
	}
	for page.Materialized < offset+chunk && page.CanFetchMore {
		if page, err = wb.FetchMore(ctx, id); err != nil {
			return input.ResultPage{}, err
		}
	}
	return wb.Page(ctx, id, offset, chunk)
}

// readQuery joins the arguments, or reads stdin when there are none.
func readQuery(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading query: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", domain.ErrEmptyQuery
	}
	return string(data), nil
}

func runLayersCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, info, err := runOnce(ctx)
	if err != nil {
		return err
	}
	defer finish(application)

	catalog, err := application.Workbench.Catalog(ctx, info.ID)
	if err != nil {
		return err
	}

	shell.PrintCatalog(cmd.OutOrStdout(), catalog)
	return nil
}

func runSourcesCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, err := setup(ctx, os.Stderr)
	if err != nil {
		return err
	}

	var objects []output.StorageObject
	if application.Storage != nil {
		objects, err = application.Workbench.Sources(ctx)
	} else {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		objects, err = storage.NewLocalStorage(dir).List(ctx)
	}
	if err != nil {
		return err
	}

	printSources(cmd.OutOrStdout(), objects)
	return nil
}

func printSources(out io.Writer, objects []output.StorageObject) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Key", "Size", "Modified"})
	table.SetAutoFormatHeaders(false)
	for _, obj := range objects {
		table.Append([]string{
			obj.Key,
			humanize.Bytes(uint64(obj.Size)),
			humanize.Time(time.Unix(obj.LastModified, 0)),
		})
	}
	table.Render()
}

func runShellCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, err := setup(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer finish(application)

	application.Start(ctx)

	history, _ := cmd.Flags().GetString("history")
	noGeometry, _ := cmd.Flags().GetBool("no-geometry")
	cfg := application.Config

	if history != "" {
		if err := os.MkdirAll(filepath.Dir(history), 0o755); err != nil {
			application.Logger.Warn("history disabled", "error", err)
			history = ""
		}
	}

	sh := shell.New(
		application.Workbench,
		clipboard.New(),
		cmd.OutOrStdout(),
		application.Logger,
		shell.Options{
			HistoryFile:     history,
			Dialect:         cfg.Query.Dialect,
			IncludeGeometry: cfg.Query.IncludeGeometry && !noGeometry,
			Formats:         application.Workbench.Formats(),
		},
	)
	return sh.Run(ctx, cfg.Geodatabase.Path)
}

func defaultHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gdbee", "history")
}

func bindFlag(key string, cmd *cobra.Command, name string) {
	_ = viper.BindPFlag(key, cmd.Flags().Lookup(name))
}
