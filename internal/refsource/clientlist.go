package refsource

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/fetcher"
	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/snapshot"
)

// Client list columns. The sheet has a multi-row header, so rows are
// read positionally.
const (
	colClientName = 0
	colEmail      = 1
	colVendorName = 7
	colBookTitle  = 8
)

// Client list record attributes.
const (
	AttrBookTitle = "book_title"
	AttrRawName   = "raw_name"
)

// ClientListOptions locates the client list spreadsheet.
type ClientListOptions struct {
	// Source is a local path or an http(s) URL to a CSV or XLSX export.
	Source string
	// SheetName picks the XLSX sheet; the first sheet is used when empty.
	SheetName string
}

// ClientList reads the client list spreadsheet. A source that is not
// configured yields an empty record set rather than an error.
func ClientList(dl fetcher.Downloader, opts ClientListOptions) snapshot.Fetcher {
	return func(ctx context.Context) ([]model.ReferenceRecord, error) {
		if strings.TrimSpace(opts.Source) == "" {
			zap.L().Warn("client list source not configured, skipping")
			return nil, nil
		}
		rows, err := fetcher.ReadRows(ctx, dl, opts.Source, fetcher.RowOptions{SheetName: opts.SheetName})
		if err != nil {
			return nil, eris.Wrap(err, "refsource: client list")
		}
		recs := ParseClientList(rows)
		zap.L().Info("fetched reference source",
			zap.String("origin", string(model.OriginClientList)),
			zap.Int("rows", len(rows)),
			zap.Int("records", len(recs)),
		)
		return recs, nil
	}
}

// ParseClientList converts spreadsheet rows into records. Rows without an
// email containing '@' and header rows mentioning "client name" are skipped.
// "Last, First" names are flipped to "First Last"; the vendor name becomes an
// alias.
func ParseClientList(rows [][]string) []model.ReferenceRecord {
	var out []model.ReferenceRecord
	for i, row := range rows {
		raw := cell(row, colClientName)
		email := cell(row, colEmail)
		if !strings.Contains(email, "@") {
			continue
		}
		if strings.Contains(strings.ToLower(raw), "client name") {
			continue
		}

		first, last, name := splitLastFirst(raw)
		rec := model.ReferenceRecord{
			ID:        strconv.Itoa(i + 1),
			Name:      name,
			FirstName: first,
			LastName:  last,
			Email:     email,
			Origin:    model.OriginClientList,
			Attributes: map[string]string{
				AttrRawName: raw,
			},
		}
		if vendor := cell(row, colVendorName); vendor != "" {
			rec.Aliases = []string{vendor}
		}
		if title := cell(row, colBookTitle); title != "" {
			rec.Attributes[AttrBookTitle] = title
		}
		out = append(out, rec)
	}
	return out
}

// splitLastFirst turns "Last, First" into its parts and "First Last".
// Names without a comma are returned unchanged with no parts.
func splitLastFirst(raw string) (first, last, full string) {
	lastPart, firstPart, ok := strings.Cut(raw, ",")
	if !ok {
		return "", "", raw
	}
	first = strings.TrimSpace(firstPart)
	last = strings.TrimSpace(lastPart)
	return first, last, strings.TrimSpace(first + " " + last)
}

// cell returns the trimmed, unquoted value at col, or "".
func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(row[col]), `"`))
}
