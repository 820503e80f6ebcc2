package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/caselka/DirtyWaters/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for engagement documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides type-safe tables, GitHub-flavored alerts, and
// mermaid charts without hand-assembled strings.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AttackReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeOutcome(md, report)
	w.writeAttempts(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the run summary table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AttackReport) {
	md.H1("DirtyWaters Attack Report")
	md.PlainText("")

	found := "N/A"
	if report.FoundPassword != "" {
		found = "`" + report.FoundPassword + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + report.TargetURL + "`"},
			{"Username", "`" + report.Username + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Elapsed.String()},
			{"Total attempts", strconv.Itoa(report.TotalAttempts)},
			{"Average per attempt", report.AveragePerAttempt().String()},
			{"Circuit rotations", strconv.FormatUint(report.Rotations, 10)},
			{"Outcome", outcomeBadge(report.Outcome)},
			{"Found password", found},
		},
	})
	md.PlainText("")

	switch report.Outcome {
	case model.RunSucceeded:
		md.Importantf("Valid credentials found: `%s:%s`", report.Username, report.FoundPassword)
	case model.RunInterrupted:
		md.Warningf("The run was interrupted after %d of its attempts; results are partial.", report.TotalAttempts)
	case model.RunAborted:
		md.Cautionf("The run aborted on a fatal error after %d attempts.", report.TotalAttempts)
	case model.RunExhausted:
		md.Note(fmt.Sprintf("All %d candidates were tried without a successful login.", report.TotalAttempts))
	}
}

// outcomeBadge renders a run outcome with a status marker.
func outcomeBadge(outcome model.RunOutcome) string {
	switch outcome {
	case model.RunSucceeded:
		return "✅ Succeeded"
	case model.RunExhausted:
		return "⏹ Exhausted"
	case model.RunInterrupted:
		return "⚠️ Interrupted"
	case model.RunAborted:
		return "❌ Aborted"
	default:
		return string(outcome)
	}
}

// writeOutcome writes the per-outcome breakdown with a pie chart.
func (w *MarkdownWriter) writeOutcome(md *markdown.Markdown, report *model.AttackReport) {
	if report.TotalAttempts == 0 {
		return
	}

	md.H2("Attempt Outcomes")
	md.PlainText("")

	counts := []struct {
		label   string
		outcome model.AttemptOutcome
	}{
		{"Success", model.OutcomeSuccess},
		{"Failed", model.OutcomeFailed},
		{"Transient error", model.OutcomeTransientError},
		{"Fatal error", model.OutcomeFatalError},
	}

	rows := make([][]string, 0, len(counts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Attempt Outcome Distribution"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		n := report.CountByOutcome(c.outcome)
		rows = append(rows, []string{c.label, strconv.Itoa(n)})
		if n > 0 {
			chart.LabelAndIntValue(c.label, uint64(n)) //nolint:gosec // count is non-negative
		}
	}
	rows = append(rows, []string{"Unknown verdicts", strconv.Itoa(report.CountByVerdict(model.VerdictUnknown))})

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAttempts writes the per-attempt table.
func (w *MarkdownWriter) writeAttempts(md *markdown.Markdown, report *model.AttackReport) {
	if len(report.Attempts) == 0 {
		return
	}

	md.H2("Attempts")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Attempts))
	for _, a := range report.Attempts {
		status := ""
		if a.StatusCode != 0 {
			status = strconv.Itoa(a.StatusCode)
		}
		detail := a.RedirectTarget
		if a.Error != "" {
			detail = a.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(a.Seq),
			"`" + a.Candidate + "`",
			string(a.Outcome),
			string(a.Verdict),
			status,
			detail,
			fmt.Sprintf("%.2fs", a.Duration.Seconds()),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Candidate", "Outcome", "Verdict", "Status", "Detail", "Duration"},
		Rows:   rows,
	})
}
