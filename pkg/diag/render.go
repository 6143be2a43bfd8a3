package diag

import (
	"fmt"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/workpipe/workpipe/pkg/source"
	"github.com/workpipe/workpipe/pkg/styles"
	"github.com/workpipe/workpipe/pkg/stringutil"
)

// ColorEnabled reports whether fd looks like a real terminal, the way a
// CLI decides whether to colorize its own diagnostic output.
func ColorEnabled(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// TerminalWidth returns fd's column count, falling back to 100 when it
// cannot be determined (piped output, non-terminal fd).
func TerminalWidth(fd int) int {
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 100
	}
	return w
}

// Render formats diagnostics Rust-compiler style: a severity/code header,
// a `--> file:line:col` location, one line of source context with a caret
// underline, and an optional hint line. termWidth caps how much of the
// source excerpt is shown before it's truncated with "..." — callers pass
// TerminalWidth(fd) for a real terminal, or any fixed column count
// (tests use a generous fallback so excerpts aren't clipped).
func Render(diags []Diagnostic, sources map[string]*source.Map, termWidth int) string {
	var b strings.Builder
	for i, d := range diags {
		if i > 0 {
			b.WriteString("\n")
		}
		renderOne(&b, d, sources[d.Path], termWidth)
	}
	return b.String()
}

func renderOne(b *strings.Builder, d Diagnostic, m *source.Map, termWidth int) {
	sev := styles.Error.Render(fmt.Sprintf("%s[%s]", d.Severity, d.Code))
	if d.Severity == SeverityWarning {
		sev = styles.Warning.Render(fmt.Sprintf("%s[%s]", d.Severity, d.Code))
	}
	fmt.Fprintf(b, "%s: %s\n", sev, d.Message)

	if m == nil {
		fmt.Fprintf(b, "  %s %s\n", styles.Location.Render("-->"), styles.FilePath.Render(d.Path))
		return
	}

	line, col := m.LineCol(d.Span.Start)
	fmt.Fprintf(b, "  %s %s\n", styles.Location.Render("-->"),
		styles.FilePath.Render(fmt.Sprintf("%s:%d:%d", d.Path, line, col)))

	gutter := fmt.Sprintf("%d", line)
	pad := strings.Repeat(" ", len(gutter))
	fmt.Fprintf(b, "%s %s\n", pad, styles.LineNumber.Render("|"))

	// Gutter/arrow/margin take up a few columns of termWidth before the
	// excerpt itself; reserve them so a wrapped line still fits the
	// terminal, not just the raw column count.
	excerptBudget := termWidth - len(gutter) - 4
	excerpt := strings.TrimSuffix(stringutil.NormalizeWhitespace(m.LineText(line)), "\n")
	if excerptBudget > 3 && len(excerpt) > excerptBudget {
		excerpt = stringutil.Truncate(excerpt, excerptBudget)
	}
	fmt.Fprintf(b, "%s %s %s\n", styles.LineNumber.Render(gutter), styles.LineNumber.Render("|"), styles.ContextLine.Render(excerpt))

	spanWidth := d.Span.End - d.Span.Start
	if spanWidth < 1 {
		spanWidth = 1
	}
	if col-1 > len(excerpt) {
		spanWidth = 0
	} else if col-1+spanWidth > len(excerpt) {
		spanWidth = len(excerpt) - (col - 1)
	}
	underline := strings.Repeat(" ", col-1) + strings.Repeat("^", spanWidth)
	fmt.Fprintf(b, "%s %s %s\n", pad, styles.LineNumber.Render("|"), styles.Highlight.Render(underline))

	if d.Hint != "" {
		fmt.Fprintf(b, "%s %s %s\n", pad, styles.LineNumber.Render("="), styles.Info.Render("help: "+d.Hint))
	}
}
