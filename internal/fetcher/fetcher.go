// Package fetcher reads spreadsheet rows from local files or remote
// exports (Google Sheets CSV links, shared XLSX files).
package fetcher

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Downloader fetches a remote file.
type Downloader interface {
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// RowOptions configures ReadRows.
type RowOptions struct {
	SkipRows  int
	SheetName string
}

// ReadRows loads all rows from source, which may be a local path or an
// http(s) URL. Files ending in .xlsx are read as workbooks; anything else,
// including URLs with format=csv, is parsed as CSV.
func ReadRows(ctx context.Context, dl Downloader, source string, opts RowOptions) ([][]string, error) {
	if source == "" {
		return nil, eris.New("fetcher: empty spreadsheet source")
	}

	xopts := XLSXOptions{SkipRows: opts.SkipRows, SheetName: opts.SheetName}
	copts := CSVOptions{SkipRows: opts.SkipRows, LazyQuotes: true, TrimSpace: true}

	if isURL(source) {
		if dl == nil {
			return nil, eris.Errorf("fetcher: no downloader for %s", source)
		}
		data, err := dl.Download(ctx, source)
		if err != nil {
			return nil, err
		}
		if isXLSX(source) {
			return ReadXLSXBytes(data, xopts)
		}
		return ReadCSV(ctx, bytes.NewReader(data), copts)
	}

	if isXLSX(source) {
		return ReadXLSX(source, xopts)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(ctx, f, copts)
}

func isURL(source string) bool {
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func isXLSX(source string) bool {
	if u, err := url.Parse(source); err == nil && isURL(source) {
		if u.Query().Get("format") == "xlsx" {
			return true
		}
		source = u.Path
	}
	return strings.EqualFold(filepath.Ext(source), ".xlsx")
}
