// Package pathutil provides path validation utilities.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// CheckDirectoryWritable checks if a directory exists on fs and is writable.
// If the directory doesn't exist, it attempts to create it.
func CheckDirectoryWritable(fs afero.Fs, path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	info, err := fs.Stat(absPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := fs.MkdirAll(absPath, 0755); err != nil {
			return fmt.Errorf("directory %s does not exist and cannot be created: %w", absPath, err)
		}
	case err != nil:
		return fmt.Errorf("cannot access directory %s: %w", absPath, err)
	case !info.IsDir():
		return fmt.Errorf("path %s exists but is not a directory", absPath)
	}

	// Hidden temp name so a concurrent cache listing skips it.
	probe := filepath.Join(absPath, "."+uuid.NewString()+".tmp")
	if err := afero.WriteFile(fs, probe, []byte("test"), 0644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", absPath, err)
	}
	_ = fs.Remove(probe)

	return nil
}

// CheckParentWritable checks the directory that will hold file.
func CheckParentWritable(fs afero.Fs, file string) error {
	if file == "" || file == ":memory:" {
		return nil
	}
	return CheckDirectoryWritable(fs, filepath.Dir(file))
}
