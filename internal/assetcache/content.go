package assetcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const tempSuffix = ".tmp"

// ContentStore is the flat directory holding downloaded asset bytes.
type ContentStore struct {
	fs  afero.Fs
	dir string
}

// NewContentStore returns a store rooted at dir on fs. The directory is
// created by EnsureDir, not here.
func NewContentStore(fs afero.Fs, dir string) *ContentStore {
	return &ContentStore{fs: fs, dir: dir}
}

// Dir returns the content directory.
func (c *ContentStore) Dir() string {
	return c.dir
}

// Path returns the absolute location for a file name inside the directory.
func (c *ContentStore) Path(name string) string {
	return filepath.Join(c.dir, name)
}

// EnsureDir creates the content directory if it does not exist.
func (c *ContentStore) EnsureDir() (created bool, err error) {
	exists, err := afero.DirExists(c.fs, c.dir)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create cache directory %s: %w", c.dir, err)
	}
	return true, nil
}

// Exists reports whether a regular file is present at path.
func (c *ContentStore) Exists(path string) bool {
	info, err := c.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Read returns the bytes stored at path.
func (c *ContentStore) Read(path string) ([]byte, error) {
	return afero.ReadFile(c.fs, path)
}

// WriteAtomic writes data to a hidden temp file and renames it to name, so a
// failed write never leaves a partial file under the final name.
func (c *ContentStore) WriteAtomic(name string, data []byte) (string, error) {
	final := c.Path(name)
	tmp := c.Path("." + uuid.NewString() + tempSuffix)

	if err := afero.WriteFile(c.fs, tmp, data, 0644); err != nil {
		_ = c.fs.Remove(tmp)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := c.fs.Rename(tmp, final); err != nil {
		_ = c.fs.Remove(tmp)
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	return final, nil
}

// List returns the cached files, skipping directories and in-flight temp files.
func (c *ContentStore) List() ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return nil, err
	}

	files := make([]os.FileInfo, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || isTempFile(info.Name()) {
			continue
		}
		files = append(files, info)
	}

	return files, nil
}

// RemovePrefix deletes every cached file whose name starts with prefix.
// It keeps going after a failed delete and returns the first error.
func (c *ContentStore) RemovePrefix(prefix string) (int, error) {
	files, err := c.List()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var (
		removed  int
		firstErr error
	)
	for _, f := range files {
		if !strings.HasPrefix(f.Name(), prefix) {
			continue
		}
		if err := c.fs.Remove(c.Path(f.Name())); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove %s: %w", f.Name(), err)
			}
			continue
		}
		removed++
	}

	return removed, firstErr
}

// Reset deletes the whole directory and recreates it empty.
func (c *ContentStore) Reset() error {
	if err := c.fs.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to remove cache directory: %w", err)
	}
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to recreate cache directory: %w", err)
	}
	return nil
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempSuffix)
}
