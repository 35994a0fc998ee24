// Package report renders the author reconciliation report and run summaries.
package report

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// AuthorRow is one credited author in the report.
type AuthorRow struct {
	Name       string
	Products   []model.SourceRef
	Resolution model.Resolution
}

// ProductCount is the number of products crediting the author.
func (r AuthorRow) ProductCount() int { return len(r.Products) }

// AuthorReport groups resolutions by classification. Each section is sorted
// by product count, highest first; ties keep extraction order.
type AuthorReport struct {
	GeneratedAt time.Time
	Sources     []model.Origin
	Total       int
	// Matched authors hold an account in the primary source.
	Matched []AuthorRow
	// Secondary authors have no account but matched a secondary source.
	Secondary []AuthorRow
	// Orphans matched nothing.
	Orphans []AuthorRow
}

// BuildAuthorReport classifies resolutions into report sections.
func BuildAuthorReport(resolutions []model.Resolution, sources []model.Origin, now time.Time) *AuthorReport {
	r := &AuthorReport{GeneratedAt: now.UTC(), Sources: sources, Total: len(resolutions)}
	for _, res := range resolutions {
		row := AuthorRow{Name: res.Entity.Name, Products: res.Entity.Sources, Resolution: res}
		switch res.Classification {
		case model.MatchedPrimary:
			r.Matched = append(r.Matched, row)
		case model.MatchedSecondary:
			r.Secondary = append(r.Secondary, row)
		default:
			r.Orphans = append(r.Orphans, row)
		}
	}
	for _, rows := range [][]AuthorRow{r.Matched, r.Secondary, r.Orphans} {
		slices.SortStableFunc(rows, func(a, b AuthorRow) int {
			return cmp.Compare(b.ProductCount(), a.ProductCount())
		})
	}
	return r
}

// ReportPath returns <dir>/orphan-authors-report-<date>.md.
func ReportPath(dir string, generated time.Time) string {
	return filepath.Join(dir, "orphan-authors-report-"+generated.UTC().Format("2006-01-02")+".md")
}

// WriteAuthorReport renders r as markdown into dir and returns the path.
func WriteAuthorReport(dir string, r *AuthorReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create dir %s", dir)
	}
	path := ReportPath(dir, r.GeneratedAt)
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "report: create %s", path)
	}
	if err := r.WriteMarkdown(f); err != nil {
		f.Close() //nolint:errcheck,gosec
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "report: close %s", path)
	}
	return path, nil
}

// WriteMarkdown renders the report.
func (r *AuthorReport) WriteMarkdown(w io.Writer) error {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Orphan Authors Report")
	line("")
	line("**Generated:** %s", r.GeneratedAt.Format(time.RFC3339))
	if len(r.Sources) > 0 {
		names := make([]string, len(r.Sources))
		for i, s := range r.Sources {
			names[i] = string(s)
		}
		line("")
		line("**Sources (priority order):** %s", strings.Join(names, ", "))
	}
	line("")
	line("## Summary")
	line("")
	line("| Metric | Count |")
	line("|--------|-------|")
	line("| Total unique authors in products | %d |", r.Total)
	line("| Authors with WP accounts | %d |", len(r.Matched))
	line("| Orphans with reference match | %d |", len(r.Secondary))
	line("| True orphans (no match anywhere) | %d |", len(r.Orphans))
	line("")
	line("---")
	line("")
	line("## True Orphan Authors")
	line("")
	line("These authors appear in product metadata but match no reference source.")
	line("")
	line("| Author Name | Product Count | Sample Product |")
	line("|-------------|---------------|----------------|")
	for _, o := range r.Orphans {
		line("| %s | %d | %s |", escape(o.Name), o.ProductCount(), sampleProduct(o.Products))
	}
	line("")
	line("---")
	line("")
	line("## True Orphan Authors - Detailed List")
	line("")
	for _, o := range r.Orphans {
		line("### %s", o.Name)
		line("")
		line("**Products (%d):**", o.ProductCount())
		for _, p := range o.Products {
			line("- #%d: %s", p.ID, p.Label)
		}
		line("")
	}
	line("---")
	line("")
	line("## Orphans with Reference Match (Ready to Migrate)")
	line("")
	line("These authors have no WP account but were found in a secondary source.")
	line("")
	line("| Author Name | Source | Match | Matched Name | Email | Products |")
	line("|-------------|--------|-------|--------------|-------|----------|")
	for _, s := range r.Secondary {
		m := s.Resolution.Match
		line("| %s | %s | %s | %s | %s | %d |",
			escape(s.Name), m.Origin, strength(m), escape(recordName(m)), escape(recordEmail(m)), s.ProductCount())
	}
	line("")
	line("---")
	line("")
	line("## Matched Authors (WP accounts)")
	line("")
	line("| Author Name | WP User ID | WP Email | Match | Product Count |")
	line("|-------------|------------|----------|-------|---------------|")
	for _, m := range r.Matched {
		var id string
		if m.Resolution.Match.Record != nil {
			id = m.Resolution.Match.Record.ID
		}
		line("| %s | %s | %s | %s | %d |",
			escape(m.Name), id, escape(recordEmail(m.Resolution.Match)), strength(m.Resolution.Match), m.ProductCount())
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write markdown")
	}
	return nil
}

// strength marks substring matches for review.
func strength(m model.MatchResult) string {
	if m.BestEffort() {
		return "contained (review)"
	}
	return "exact"
}

func sampleProduct(refs []model.SourceRef) string {
	if len(refs) == 0 {
		return ""
	}
	return fmt.Sprintf("#%d: %s", refs[0].ID, escape(refs[0].Label))
}

func recordName(m model.MatchResult) string {
	if m.Record == nil {
		return ""
	}
	return m.Record.Name
}

func recordEmail(m model.MatchResult) string {
	if m.Record == nil {
		return ""
	}
	return m.Record.Email
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
