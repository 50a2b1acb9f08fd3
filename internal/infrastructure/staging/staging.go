package staging

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	inputDirName  = "in"
	outputDirName = "out"
)

// Area is a single-use temporary working directory with separate input and
// output locations. Close removes everything under it.
type Area struct {
	root string
}

// New creates a fresh area under baseDir (os.TempDir() when empty).
func New(baseDir string) (*Area, error) {
	root, err := os.MkdirTemp(baseDir, "docroute-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	area := &Area{root: root}
	for _, dir := range []string{area.InputDir(), area.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = area.Close()
			return nil, fmt.Errorf("create staging subdir: %w", err)
		}
	}
	return area, nil
}

func (a *Area) Root() string      { return a.root }
func (a *Area) InputDir() string  { return filepath.Join(a.root, inputDirName) }
func (a *Area) OutputDir() string { return filepath.Join(a.root, outputDirName) }

// StageInput copies src into the input directory under its original base name
// and returns the staged path.
func (a *Area) StageInput(src string) (string, error) {
	dst := filepath.Join(a.InputDir(), filepath.Base(src))
	if err := CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return dst, nil
}

func (a *Area) Close() error {
	if a == nil || a.root == "" {
		return nil
	}
	if err := os.RemoveAll(a.root); err != nil {
		return fmt.Errorf("remove staging dir: %w", err)
	}
	return nil
}
