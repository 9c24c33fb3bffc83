// Package observability provides logging setup and formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonathan/profile-scraper/internal/batch"
	"github.com/jonathan/profile-scraper/internal/db"
	"github.com/jonathan/profile-scraper/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

var sectionTitles = map[types.Field]string{
	types.FieldSocials:        "Socials",
	types.FieldExperience:     "Experience",
	types.FieldEducation:      "Education",
	types.FieldCertifications: "Certifications",
	types.FieldProjects:       "Projects",
}

// PrintProfileRecord outputs a human-readable summary of one extracted profile.
func (p *Printer) PrintProfileRecord(rec *types.ProfileRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source:   %s\n", rec.Source))
	if rec.IsEmpty() {
		sb.WriteString("\n(no profile data extracted)")
		p.printBox("PROFILE", sb.String())
		return
	}

	sb.WriteString(fmt.Sprintf("Name:     %s\n", orDash(rec.Name)))
	sb.WriteString(fmt.Sprintf("Bio:      %s\n", orDash(rec.Bio)))

	for _, f := range types.MappingFields {
		m := rec.Mapping(f)
		if len(m) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s (%d):\n", sectionTitles[f], len(m)))

		keys := sortedKeys(m)
		count := min(len(keys), maxItemsToShow)
		for _, k := range keys[:count] {
			if v := m[k]; v != "" {
				sb.WriteString(fmt.Sprintf("  • %s: %s\n", k, v))
			} else {
				sb.WriteString(fmt.Sprintf("  • %s\n", k))
			}
		}
		if len(keys) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(keys)-maxItemsToShow))
		}
	}

	title := "PROFILE"
	if rec.Name != "" {
		title = "PROFILE: " + rec.Name
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary renders a finished run as a table.
func (p *Printer) PrintSummary(s batch.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("RUN " + s.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Identifiers", s.Total},
		{"Records emitted", s.Emitted},
		{"With data", s.Populated},
		{"Empty", s.Empty},
		{"Faults", s.Faults},
		{"Sink errors", s.SinkErrors},
		{"Duration", s.Duration().Round(10 * time.Millisecond).String()},
	})
	if s.Cancelled {
		t.AppendFooter(table.Row{"Status", "cancelled"})
	} else {
		t.AppendFooter(table.Row{"Status", "completed"})
	}
	t.Render()
}

// PrintStoredRun renders a stored run and one row per saved record.
func (p *Printer) PrintStoredRun(run *db.Run, records []db.StoredRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("RUN %s  %s  %d/%d saved", run.ID, run.Status, run.Emitted, run.Total))
	t.AppendHeader(table.Row{"#", "Source", "Name", "Experience", "Education", "Socials"})
	for _, sr := range records {
		t.AppendRow(table.Row{
			sr.Position,
			truncate(sr.Record.Source, 48),
			truncate(orDash(sr.Record.Name), 32),
			len(sr.Record.Experience),
			len(sr.Record.Education),
			len(sr.Record.Socials),
		})
	}
	finished := "-"
	if run.CompletedAt != nil {
		finished = run.CompletedAt.Sub(run.CreatedAt).Round(time.Second).String()
	}
	t.AppendFooter(table.Row{"", "Started " + run.CreatedAt.Format(time.RFC3339), "Took " + finished})
	t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
