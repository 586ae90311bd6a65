// Package fsops holds small afero helpers shared by the locator, the launch
// script writer and the doctor command.
package fsops

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ExecutablePerm is the mode given to generated launch scripts
const ExecutablePerm os.FileMode = 0755

// EnsureDir ensures a directory exists with the given permissions
func EnsureDir(fs afero.Fs, path string, perm os.FileMode) error {
	if err := fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("ensure directory: %w", err)
	}
	return nil
}

// Exists checks if a path exists
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// IsDir checks if a path is a directory
func IsDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsRegular reports whether path is a regular file (or a symlink to one)
func IsRegular(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// CheckWritable checks if a directory is writable
func CheckWritable(fs afero.Fs, dir string) error {
	testFile := filepath.Join(dir, ".write_test")
	f, err := fs.Create(testFile)
	if err != nil {
		return fmt.Errorf("path not writable: %w", err)
	}
	f.Close()
	_ = fs.Remove(testFile)
	return nil
}

// WriteExecutable writes content to path with ExecutablePerm, creating the
// parent directory. The file is written next to path and renamed into place.
func WriteExecutable(fs afero.Fs, path string, content []byte) error {
	if err := EnsureDir(fs, filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, content, ExecutablePerm); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	// WriteFile honours umask on real filesystems
	if err := fs.Chmod(tmp, ExecutablePerm); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
