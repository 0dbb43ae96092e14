package shell

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
)

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

// PrintPage prints a page with 1-based row numbers followed by a position line.
func PrintPage(out io.Writer, page input.ResultPage) {
	table := newTable(out, append([]string{"#"}, page.Headers...))
	for i, row := range page.Rows {
		table.Append(append([]string{strconv.Itoa(domain.RowNumber(page.Offset + i))}, row...))
	}
	table.Render()

	if len(page.Rows) == 0 {
		return
	}
	line := fmt.Sprintf("Rows %s-%s of %s",
		humanize.Comma(int64(domain.RowNumber(page.Offset))),
		humanize.Comma(int64(page.Offset+len(page.Rows))),
		humanize.Comma(int64(page.Total)),
	)
	if page.CanFetchMore {
		line += `, \more for the next chunk`
	}
	fmt.Fprintln(out, line)
}

// PrintCatalog prints the catalog items as a table.
func PrintCatalog(out io.Writer, catalog domain.Catalog) {
	table := newTable(out, []string{"Name", "Kind", "Geometry", "SRID"})
	for _, item := range catalog.Items {
		srid := ""
		if item.IsFeatureClass() {
			srid = strconv.Itoa(item.SRID)
		}
		table.Append([]string{item.Name, string(item.Kind), item.GeometryType, srid})
	}
	table.Render()
}

func printItem(out io.Writer, item *domain.Item) {
	table := newTable(out, []string{"Column", "Type"})
	for _, col := range item.Columns {
		table.Append([]string{col.Name, col.Type})
	}
	table.Render()
}
