package output

import (
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Table is one titled section of the console report.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Footer is omitted when empty.
	Footer []string
	// Align holds one tablewriter alignment per column. Nil aligns left.
	Align []int
}

// Renderer turns a Table into text.
type Renderer interface {
	Render(t Table) string
}

type boxRenderer struct {
	colors *ColorHelper
}

// NewRenderer creates a renderer that draws box tables under a coloured
// section header.
func NewRenderer(colors *ColorHelper) Renderer {
	return &boxRenderer{colors: colors}
}

func (r *boxRenderer) Render(t Table) string {
	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString("\n" + r.colors.Header("▸ "+t.Title) + "\n\n")
	}

	tw := tablewriter.NewWriter(&sb)
	tw.SetHeader(t.Headers)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetCenterSeparator("┼")
	tw.SetColumnSeparator("│")
	tw.SetRowSeparator("─")

	if len(t.Align) > 0 {
		tw.SetColumnAlignment(t.Align)
	}

	if len(t.Footer) > 0 {
		tw.SetFooter(t.Footer)
		tw.SetFooterAlignment(tablewriter.ALIGN_LEFT)
	}

	tw.AppendBulk(t.Rows)
	tw.Render()

	return sb.String()
}

// numericColumns right-aligns every column after the first.
func numericColumns(n int) []int {
	align := make([]int, n)
	for i := 1; i < n; i++ {
		align[i] = tablewriter.ALIGN_RIGHT
	}

	return align
}

var _ Renderer = (*boxRenderer)(nil)
