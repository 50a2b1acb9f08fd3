package staging

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TreeSize sums the sizes of regular files under root. Entries that cannot be
// read are skipped rather than failing the whole walk.
func TreeSize(root string) (int64, int) {
	var total int64
	var files int
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		files++
		return nil
	})
	return total, files
}

type candidate struct {
	path    string
	modTime time.Time
}

// NewestFile finds the most recently modified regular file under root whose
// name ends in ext (case-insensitive). Equal modification times are broken by
// the lexicographically smallest path, so the choice is deterministic.
func NewestFile(root, ext string) (string, bool, error) {
	ext = strings.ToLower(ext)
	var found []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, candidate{path: path, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if len(found) == 0 {
		return "", false, nil
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].modTime.Equal(found[j].modTime) {
			return found[i].modTime.After(found[j].modTime)
		}
		return found[i].path < found[j].path
	})
	return found[0].path, true, nil
}
