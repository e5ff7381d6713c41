package save

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is a capability-scoped writable directory. The saver never touches
// paths outside the capability it is handed; subdirectories are reached
// through Sub, mirroring how a browser directory handle works.
type Dir interface {
	// Name is the directory's display name, used for the {folder} variable.
	Name() string
	// Sub returns a handle on the named subdirectory, creating it if needed.
	Sub(name string) (Dir, error)
	// WriteFile writes the full contents of the named file.
	WriteFile(name string, data []byte) error
	// Remove deletes the named entry, for cleanup of partial writes.
	Remove(name string) error
}

// OSDir implements Dir on top of the local filesystem.
type OSDir struct {
	path string
}

// OpenDir validates the destination before any writes happen, so a bad
// destination surfaces immediately rather than mid-run.
func OpenDir(path string) (*OSDir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("destination directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("destination is not a directory: %s", abs)
	}
	return &OSDir{path: abs}, nil
}

func (d *OSDir) Name() string {
	return filepath.Base(d.path)
}

func (d *OSDir) Sub(name string) (Dir, error) {
	sub := filepath.Join(d.path, name)
	if err := os.MkdirAll(sub, 0755); err != nil {
		return nil, fmt.Errorf("failed to create subdirectory %s: %w", name, err)
	}
	return &OSDir{path: sub}, nil
}

func (d *OSDir) WriteFile(name string, data []byte) error {
	return os.WriteFile(filepath.Join(d.path, name), data, 0644)
}

func (d *OSDir) Remove(name string) error {
	return os.Remove(filepath.Join(d.path, name))
}
