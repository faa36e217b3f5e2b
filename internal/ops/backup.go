// Package ops archives and restores the ledger's month files.
package ops

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"taskapp/internal/ledger"

	"github.com/klauspost/compress/gzip"
)

// BackupLedger writes every tasks_YYYY_MM.json file of tasksDir into a
// flat .tar.gz at archivePath and returns how many months it archived.
// Other files in the directory are not part of the ledger and are skipped.
func BackupLedger(tasksDir, archivePath string) (int, error) {
	tasksDir = filepath.Clean(strings.TrimSpace(tasksDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	if tasksDir == "" || archivePath == "" {
		return 0, fmt.Errorf("tasksDir and archivePath are required")
	}
	info, err := os.Stat(tasksDir)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("source is not a directory: %s", tasksDir)
	}
	months, err := monthFiles(tasksDir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return 0, err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, name := range months {
		if err := addFile(tw, filepath.Join(tasksDir, name), name); err != nil {
			return 0, fmt.Errorf("archive %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	return len(months), f.Close()
}

func addFile(tw *tar.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, src)
	return err
}

// RestoreLedger unpacks a BackupLedger archive into targetDir. Every entry
// must be a month file at the archive root holding a valid record list.
// Entries are staged next to targetDir and only moved in once the whole
// archive has been checked, so a bad archive leaves targetDir untouched.
func RestoreLedger(archivePath, targetDir string) (int, error) {
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	targetDir = filepath.Clean(strings.TrimSpace(targetDir))
	if archivePath == "" || targetDir == "" {
		return 0, fmt.Errorf("archivePath and targetDir are required")
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return 0, err
	}
	staging, err := os.MkdirTemp(filepath.Dir(targetDir), ".restore-"+filepath.Base(targetDir)+"-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(staging)

	months, err := extractMonths(archivePath, staging)
	if err != nil {
		return 0, err
	}
	for _, m := range months {
		if err := os.Rename(filepath.Join(staging, m.FileName()), filepath.Join(targetDir, m.FileName())); err != nil {
			return 0, fmt.Errorf("move %s into place: %w", m.FileName(), err)
		}
	}
	return len(months), nil
}

// extractMonths writes every archive entry into dir and checks that each
// one loads as a month of records.
func extractMonths(archivePath, dir string) ([]ledger.Month, error) {
	store, err := ledger.NewFileStore(dir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var months []ledger.Month
	seen := map[ledger.Month]bool{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeDir {
			continue
		}

		m, err := sanitizeMonthEntry(hdr)
		if err != nil {
			return nil, err
		}
		dst, err := os.OpenFile(filepath.Join(dir, m.FileName()), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(dst, tr); err != nil {
			_ = dst.Close()
			return nil, err
		}
		if err := dst.Close(); err != nil {
			return nil, err
		}
		if _, err := store.Load(m); err != nil {
			return nil, fmt.Errorf("restored %s: %w", m.FileName(), err)
		}
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	return months, nil
}

func sanitizeMonthEntry(hdr *tar.Header) (ledger.Month, error) {
	name := strings.TrimSpace(hdr.Name)
	if hdr.Typeflag != tar.TypeReg {
		return ledger.Month{}, fmt.Errorf("unsupported archive entry type for %s", name)
	}
	if filepath.IsAbs(name) || strings.Contains(name, "..") {
		return ledger.Month{}, fmt.Errorf("invalid archive entry path traversal: %s", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return ledger.Month{}, fmt.Errorf("unexpected nested archive entry: %s", name)
	}
	m, ok := ledger.ParseMonthFileName(name)
	if !ok {
		return ledger.Month{}, fmt.Errorf("archive entry is not a month file: %s", name)
	}
	return m, nil
}

// Digest hashes the month files of dir in month order, so a restored copy
// can be compared with its source.
func Digest(dir string) (string, error) {
	months, err := monthFiles(dir)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, name := range months {
		_, _ = io.WriteString(h, name)
		_, _ = io.WriteString(h, "\n")
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		_, _ = h.Write(b)
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// monthFiles lists the month file names of dir in month order. It never
// creates dir.
func monthFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var months []ledger.Month
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if m, ok := ledger.ParseMonthFileName(e.Name()); ok {
			months = append(months, m)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	names := make([]string, 0, len(months))
	for _, m := range months {
		names = append(names, m.FileName())
	}
	return names, nil
}
