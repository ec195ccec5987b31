// Package render formats scan reports for terminals and machine consumers.
package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ochairo/trustscan/internal/domain/entities"
	"github.com/ochairo/trustscan/internal/domain/services"
)

const (
	defaultWidth  = 100
	minWidth      = 72
	maxWidth      = 160
	riskColumn    = 6
	categoryWidth = 18
	evidenceLimit = 80
	otherVendors  = "Unknown / Other"
)

// TextOptions controls the human-readable report
type TextOptions struct {
	GroupByVendor bool
	Color         bool
	Width         int // 0 uses defaultWidth
}

// TextRenderer writes a colored, column-aligned report
type TextRenderer struct {
	out     io.Writer
	width   int
	grouped bool
	colors  palette
}

type palette struct {
	high   *color.Color
	med    *color.Color
	low    *color.Color
	info   *color.Color
	header *color.Color
	label  *color.Color
	dim    *color.Color
	ok     *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		high:   color.New(color.FgRed, color.Bold),
		med:    color.New(color.FgYellow, color.Bold),
		low:    color.New(color.FgBlue, color.Bold),
		info:   color.New(color.Faint),
		header: color.New(color.FgCyan, color.Bold),
		label:  color.New(color.FgCyan),
		dim:    color.New(color.Faint),
		ok:     color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.high, p.med, p.low, p.info, p.header, p.label, p.dim, p.ok} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s entities.Severity) *color.Color {
	switch s {
	case entities.SeverityHigh:
		return p.high
	case entities.SeverityMed:
		return p.med
	case entities.SeverityLow:
		return p.low
	default:
		return p.info
	}
}

// NewTextRenderer creates a renderer writing to out
func NewTextRenderer(out io.Writer, opts TextOptions) *TextRenderer {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	if width < minWidth {
		width = minWidth
	}
	if width > maxWidth {
		width = maxWidth
	}
	return &TextRenderer{
		out:     out,
		width:   width,
		grouped: opts.GroupByVendor,
		colors:  newPalette(opts.Color),
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the column count of f, or 0 when it is not a terminal
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		return w
	}
	return 0
}

// Render writes the header, summary, findings table and the HIGH/MED detail section
func (r *TextRenderer) Render(report *entities.ScanReport) error {
	w := &errWriter{w: r.out}

	r.writeHeader(w, report)
	r.writeSummary(w, report.Findings)

	if len(report.Findings) == 0 {
		w.printf("%s\n\n", r.colors.ok.Sprint("No security findings detected"))
		return w.err
	}

	if r.grouped {
		r.writeGrouped(w, report.Findings)
	} else {
		r.writeFlat(w, report.Findings)
	}
	r.writeDetails(w, report.Findings)
	return w.err
}

func (r *TextRenderer) writeHeader(w *errWriter, report *entities.ScanReport) {
	w.printf("%s\n", r.colors.header.Sprint("trustscan report"))
	rows := [][2]string{
		{"Host:", report.Host.Hostname},
		{"OS Version:", fmt.Sprintf("%s (Build %s)", report.Host.OSVersion, report.Host.Build)},
		{"Architecture:", report.Host.Arch},
		{"Scan Time:", entities.FormatTimestamp(report.Timestamp)},
	}
	for _, row := range rows {
		w.printf("  %s %s\n", r.colors.label.Sprint(pad(row[0], 14)), row[1])
	}
	w.printf("\n")
}

func (r *TextRenderer) writeSummary(w *errWriter, findings []entities.Finding) {
	counts := entities.CountBySeverity(findings)
	parts := make([]string, 0, len(counts))
	for _, s := range entities.AllSeverities() {
		text := fmt.Sprintf("%d %s", counts[s], s)
		if counts[s] == 0 {
			parts = append(parts, r.colors.dim.Sprint(text))
			continue
		}
		parts = append(parts, r.colors.severity(s).Sprint(text))
	}
	w.printf("%s %s\n\n", r.colors.header.Sprint("Summary:"), strings.Join(parts, "  "))
}

func (r *TextRenderer) writeFlat(w *errWriter, findings []entities.Finding) {
	w.printf("%s %s\n\n", r.colors.header.Sprint("Findings"), r.colors.dim.Sprintf("(%d total)", len(findings)))
	r.writeTable(w, findings)
	w.printf("\n")
}

func (r *TextRenderer) writeGrouped(w *errWriter, findings []entities.Finding) {
	groups := GroupByVendor(findings)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	w.printf("%s %s\n\n", r.colors.header.Sprint("Findings by Vendor"), r.colors.dim.Sprintf("(%d total)", len(findings)))
	for _, name := range names {
		group := groups[name]
		w.printf("%s %s\n", r.colors.label.Sprint(name), r.colors.dim.Sprintf("- %d finding(s)", len(group)))
		r.writeTable(w, group)
		w.printf("\n")
	}
}

// GroupByVendor buckets findings by known publisher. Unknown or unsigned
// publishers share one bucket.
func GroupByVendor(findings []entities.Finding) map[string][]entities.Finding {
	groups := make(map[string][]entities.Finding)
	for _, f := range findings {
		key := otherVendors
		if team := f.TeamID(); services.IsKnownVendor(team) {
			key = fmt.Sprintf("%s (%s)", services.VendorName(team), team)
		}
		groups[key] = append(groups[key], f)
	}
	return groups
}

func (r *TextRenderer) writeTable(w *errWriter, findings []entities.Finding) {
	titleWidth, pathWidth := r.columnWidths()
	w.printf("  %s %s %s %s\n",
		r.colors.label.Sprint(pad("RISK", riskColumn)),
		r.colors.label.Sprint(pad("CATEGORY", categoryWidth)),
		r.colors.label.Sprint(pad("TITLE", titleWidth)),
		r.colors.label.Sprint("PATH"))

	for _, f := range findings {
		path := f.Path
		if path == "" {
			path = "N/A"
		}
		w.printf("  %s %s %s %s\n",
			r.colors.severity(f.Severity).Sprint(pad(f.Severity.String(), riskColumn)),
			pad(string(f.Category), categoryWidth),
			pad(clip(f.Title, titleWidth), titleWidth),
			r.colors.dim.Sprint(clipLeft(path, pathWidth)))
	}
}

// columnWidths splits the space left after the fixed columns between title and path
func (r *TextRenderer) columnWidths() (title, path int) {
	free := r.width - 2 - riskColumn - categoryWidth - 3
	title = free * 2 / 5
	path = free - title
	return title, path
}

func (r *TextRenderer) writeDetails(w *errWriter, findings []entities.Finding) {
	var urgent []entities.Finding
	for _, f := range findings {
		if f.Severity.AtLeast(entities.SeverityMed) {
			urgent = append(urgent, f)
		}
	}
	if len(urgent) == 0 {
		return
	}

	w.printf("%s\n\n", r.colors.header.Sprint("Detailed Analysis"))
	for i, f := range urgent {
		w.printf("%s %s\n", r.colors.severity(f.Severity).Sprintf("[%s]", f.Severity), f.Title)
		w.printf("  %s %s\n", r.colors.dim.Sprint("ID:"), f.ID)
		if f.Details != "" {
			w.printf("  %s\n", f.Details)
		}
		if f.Path != "" {
			w.printf("  %s %s\n", r.colors.label.Sprint("Path:"), f.Path)
		}
		if len(f.Evidence) > 0 {
			w.printf("  %s\n", r.colors.label.Sprint("Evidence:"))
			for _, key := range sortedKeys(f.Evidence) {
				w.printf("    - %s %s\n", r.colors.label.Sprint(key+":"), clip(f.Evidence[key], evidenceLimit))
			}
		}
		w.printf("  %s %s\n", r.colors.label.Sprint("Recommendation:"), f.Recommendation)
		if i < len(urgent)-1 {
			w.printf("\n")
		}
	}
	w.printf("\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pad right-pads s with spaces to n runes
func pad(s string, n int) string {
	if gap := n - len([]rune(s)); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// clip shortens s to n runes, ending with "..."
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// clipLeft keeps the tail of s, which is the informative end of a path
func clipLeft(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[len(r)-n:])
	}
	return "..." + string(r[len(r)-(n-3):])
}

// errWriter remembers the first write error so rendering code stays linear
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
