package templates

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/linesmerrill/push-dispatcher/models"
)

// RunReportSubject is the subject line for a run report email
func RunReportSubject(report models.RunReport) string {
	if report.Error != "" {
		return "Push dispatch run failed"
	}
	return fmt.Sprintf("Push dispatch run: %d of %d notifications failed", report.Failed, report.Total)
}

// RenderRunReportEmail generates the HTML for the run report email
func RenderRunReportEmail(report models.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<p>Run <strong>%s</strong> started %s and took %s.</p>\n",
		html.EscapeString(report.RunID),
		report.StartedAt.UTC().Format(time.RFC1123),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)

	b.WriteString(`      <table class="stats">` + "\n")
	for _, row := range []struct {
		label string
		value int
	}{
		{"Total", report.Total},
		{"Sent", report.Sent},
		{"Failed", report.Failed},
	} {
		fmt.Fprintf(&b, `        <tr><td>%s</td><td class="value">%d</td></tr>`+"\n", row.label, row.value)
	}
	b.WriteString("      </table>\n")

	if report.Error != "" {
		fmt.Fprintf(&b, `      <div class="error">%s</div>`+"\n", html.EscapeString(report.Error))
	}

	return renderEmail(RunReportSubject(report), b.String())
}

// RenderRunReportText is the plain text alternative of RenderRunReportEmail
func RenderRunReportText(report models.RunReport) string {
	text := fmt.Sprintf("Run %s started %s.\nTotal: %d\nSent: %d\nFailed: %d\n",
		report.RunID,
		report.StartedAt.UTC().Format(time.RFC1123),
		report.Total,
		report.Sent,
		report.Failed,
	)
	if report.Error != "" {
		text += "Error: " + report.Error + "\n"
	}
	return text
}
