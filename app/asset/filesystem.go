package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type Filesystem interface {
	Exists(path string) (bool, error)
	// WriteFileIfAbsent creates path and its parent directories and writes
	// data, returning false without writing when path already exists.
	WriteFileIfAbsent(path string, data []byte) (bool, error)
}

var _ Filesystem = OSFilesystem{}

type OSFilesystem struct{}

func (OSFilesystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

func (OSFilesystem) WriteFileIfAbsent(path string, data []byte) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return false, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return false, fmt.Errorf("failed to close file: %w", err)
	}

	return true, nil
}
