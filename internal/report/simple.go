package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/caselka/DirtyWaters/internal/model"
)

// boxWidth is the total width of the bordered summary box.
const boxWidth = 80

// SimpleWriter outputs a human-readable text report: a bordered summary box
// followed, in verbose mode, by a per-attempt listing.
//
// Design decision: We use plain text with ASCII borders rather than ANSI
// colors because it works in every terminal and pipes cleanly into files
// and other tools.
type SimpleWriter struct {
	baseWriter

	// verbose adds the per-attempt listing below the summary box.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-attempt listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AttackReport) (int, error) {
	var sb strings.Builder

	writeBox(&sb, "ATTACK SUMMARY", summaryLines(report))

	if w.verbose && len(report.Attempts) > 0 {
		w.writeAttempts(&sb, report)
	}

	return w.output.Write([]byte(sb.String()))
}

// summaryLines renders the report fields the way the final summary states
// them: always total attempts, elapsed time, and outcome, whichever terminal
// path was taken.
func summaryLines(report *model.AttackReport) []string {
	found := "N/A"
	if report.FoundPassword != "" {
		found = report.FoundPassword
	}
	success := "No"
	if report.Found() {
		success = "Yes"
	}

	return []string{
		fmt.Sprintf("Target URL: %s", report.TargetURL),
		fmt.Sprintf("Username: %s", report.Username),
		fmt.Sprintf("Total attempts: %d", report.TotalAttempts),
		fmt.Sprintf("Elapsed time: %.2f seconds", report.Elapsed.Seconds()),
		fmt.Sprintf("Average time per attempt: %.2f seconds", report.AveragePerAttempt().Seconds()),
		fmt.Sprintf("Circuit rotations: %d", report.Rotations),
		fmt.Sprintf("Outcome: %s", report.Outcome),
		fmt.Sprintf("Success: %s", success),
		fmt.Sprintf("Found password: %s", found),
	}
}

// writeAttempts renders the per-attempt listing.
func (w *SimpleWriter) writeAttempts(sb *strings.Builder, report *model.AttackReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", boxWidth))
	sb.WriteString("\nATTEMPTS\n")
	sb.WriteString(strings.Repeat("-", boxWidth))
	sb.WriteString("\n")

	for _, a := range report.Attempts {
		line := fmt.Sprintf("  %4d  %-24s %-16s", a.Seq, a.Candidate, a.Outcome)
		if a.StatusCode != 0 {
			line += fmt.Sprintf(" status=%d", a.StatusCode)
		}
		if a.RedirectTarget != "" {
			line += fmt.Sprintf(" -> %s", a.RedirectTarget)
		}
		if a.Error != "" {
			line += fmt.Sprintf(" (%s)", a.Error)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

// writeBox renders a bordered box with a centered title and left-aligned
// content lines, wrapping lines that exceed the box width.
func writeBox(sb *strings.Builder, title string, lines []string) {
	border := strings.Repeat("=", boxWidth)
	inner := boxWidth - 4

	sb.WriteString(border)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("| %s |\n", center(title, inner)))
	sb.WriteString(border)
	sb.WriteString("\n")

	for _, line := range lines {
		for _, wrapped := range wrap(line, inner) {
			sb.WriteString(fmt.Sprintf("| %-*s |\n", inner, wrapped))
		}
	}

	sb.WriteString(border)
	sb.WriteString("\n")
}

// center pads s on both sides to the given width.
func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// wrap splits a line into chunks of at most width, breaking on spaces where
// possible.
func wrap(line string, width int) []string {
	if len(line) <= width {
		return []string{line}
	}

	var out []string
	current := ""
	for _, word := range strings.Fields(line) {
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			out = append(out, current)
			current = word
		}
	}
	if current != "" {
		out = append(out, current)
	}
	if len(out) == 0 {
		out = []string{line[:width]}
	}
	return out
}
