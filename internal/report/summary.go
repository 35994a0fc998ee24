package report

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/catalog-migrate/internal/model"
)

const rule = "============================================================"

// WriteRunSummary prints the console summary for a migration ledger.
func WriteRunSummary(w io.Writer, ledger *model.RunLedger, ledgerPath string) error {
	p := message.NewPrinter(language.English)
	c := ledger.Counts

	var b strings.Builder
	title := "MIGRATION SUMMARY"
	if ledger.DryRun {
		title += " (DRY RUN)"
	}
	p.Fprintf(&b, "\n%s\n%s\n%s\n", rule, title, rule)
	p.Fprintf(&b, "Run:        %s (%s)\n", ledger.RunID, ledger.Kind)
	p.Fprintf(&b, "Attempted:  %d\n", c.Attempted)
	if ledger.DryRun {
		p.Fprintf(&b, "Would send: %d\n", c.DryRun)
	} else {
		p.Fprintf(&b, "Created:    %d\n", c.Created)
		p.Fprintf(&b, "Updated:    %d\n", c.Updated)
		p.Fprintf(&b, "Failed:     %d\n", c.Failed)
	}
	p.Fprintf(&b, "Skipped:    %d\n", c.Skipped)
	if !ledger.StartedAt.IsZero() && !ledger.FinishedAt.IsZero() {
		p.Fprintf(&b, "Duration:   %s\n", ledger.FinishedAt.Sub(ledger.StartedAt).Round(time.Millisecond))
	}
	if ledger.Aborted != "" {
		p.Fprintf(&b, "ABORTED:    %s\n", ledger.Aborted)
	}
	if ledgerPath != "" {
		p.Fprintf(&b, "Ledger:     %s\n", ledgerPath)
	}

	if c.Failed > 0 {
		p.Fprintf(&b, "\nFailed records:\n")
		for _, r := range ledger.Records {
			if r.Outcome == model.OutcomeFailed {
				p.Fprintf(&b, "  - %s (%s): %s\n", r.SourceID, r.Payload.KeyValue(), r.Error)
			}
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write summary")
	}
	return nil
}

// WriteAuthorSummary prints the console summary for a reconciliation.
func WriteAuthorSummary(w io.Writer, r *AuthorReport, reportPath string) error {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	p.Fprintf(&b, "\n%s\nSUMMARY\n%s\n", rule, rule)
	p.Fprintf(&b, "Total unique authors in products: %d\n", r.Total)
	p.Fprintf(&b, "  - With WP accounts: %d\n", len(r.Matched))
	p.Fprintf(&b, "  - Orphans with reference match: %d\n", len(r.Secondary))
	p.Fprintf(&b, "  - True orphans (no match): %d\n", len(r.Orphans))
	review := 0
	for _, rows := range [][]AuthorRow{r.Matched, r.Secondary} {
		for _, row := range rows {
			if row.Resolution.Match.BestEffort() {
				review++
			}
		}
	}
	if review > 0 {
		p.Fprintf(&b, "  - Substring matches to review: %d\n", review)
	}
	if reportPath != "" {
		p.Fprintf(&b, "\nReport saved to: %s\n", reportPath)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write summary")
	}
	return nil
}
