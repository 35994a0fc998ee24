package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-migrate/internal/model"
)

// FileStore writes one JSON file per origin under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "snapshot: create cache dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(origin model.Origin) string {
	return filepath.Join(f.dir, string(origin)+".json")
}

func (f *FileStore) Get(_ context.Context, origin model.Origin) (*model.Snapshot, error) {
	data, err := os.ReadFile(f.path(origin))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: read %s", origin)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "snapshot: decode %s", origin)
	}
	return &snap, nil
}

// Put writes to a temp file in the same directory and renames it over the
// old file, so a reader sees either the previous snapshot or the new one.
func (f *FileStore) Put(_ context.Context, snap *model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "snapshot: encode %s", snap.Origin)
	}

	tmp, err := os.CreateTemp(f.dir, "."+string(snap.Origin)+"-*.tmp")
	if err != nil {
		return eris.Wrapf(err, "snapshot: create temp for %s", snap.Origin)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "snapshot: write %s", snap.Origin)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "snapshot: close temp for %s", snap.Origin)
	}
	if err := os.Rename(tmp.Name(), f.path(snap.Origin)); err != nil {
		return eris.Wrapf(err, "snapshot: rename %s", snap.Origin)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, origin model.Origin) error {
	err := os.Remove(f.path(origin))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "snapshot: delete %s", origin)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return eris.Wrap(err, "snapshot: list cache dir")
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if err := f.Delete(ctx, model.Origin(strings.TrimSuffix(name, ".json"))); err != nil {
			return err
		}
	}
	return nil
}
