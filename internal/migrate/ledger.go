package migrate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-migrate/internal/model"
)

const ledgerTimeFormat = "20060102T150405Z"

// LedgerPath returns <dir>/<kind>-<timestamp>.json for ledger.
func LedgerPath(dir string, ledger *model.RunLedger) string {
	kind := strings.TrimSpace(ledger.Kind)
	if kind == "" {
		kind = "run"
	}
	return filepath.Join(dir, kind+"-"+ledger.StartedAt.UTC().Format(ledgerTimeFormat)+".json")
}

// WriteLedger writes ledger under dir and returns the file path. The file
// is written to a temp file and renamed into place.
func WriteLedger(dir string, ledger *model.RunLedger) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "migrate: create ledger dir %s", dir)
	}

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "migrate: encode ledger")
	}

	path := LedgerPath(dir, ledger)
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return "", eris.Wrap(err, "migrate: create temp ledger")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return "", eris.Wrap(err, "migrate: write ledger")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "migrate: close ledger")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", eris.Wrapf(err, "migrate: rename ledger to %s", path)
	}
	return path, nil
}

// ReadLedger loads a ledger written by WriteLedger. Counts are rebuilt from
// the records.
func ReadLedger(path string) (*model.RunLedger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "migrate: read ledger %s", path)
	}
	var ledger model.RunLedger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, eris.Wrapf(err, "migrate: decode ledger %s", path)
	}
	ledger.Recount()
	return &ledger, nil
}
