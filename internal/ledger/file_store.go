package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON array per month in dir, named by Month.FileName.
// Every Save rewrites the whole file.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(m Month) string {
	return filepath.Join(s.dir, m.FileName())
}

func (s *FileStore) Load(m Month) ([]Record, error) {
	p := s.path(m)
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []Record{}, nil
	}
	var out []Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, p, err)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (s *FileStore) Save(m Month, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path(m), b, 0o644)
}

func (s *FileStore) Months() ([]Month, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	out := []Month{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m, ok := ParseMonthFileName(e.Name()); ok {
			out = append(out, m)
		}
	}
	sortMonths(out)
	return out, nil
}

// writeFileAtomic writes to a temp file next to path and renames it into
// place, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
