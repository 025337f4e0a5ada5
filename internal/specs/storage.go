package specs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Storage is the read-only file access the validators depend on.
// Paths are absolute or relative to the process working directory.
type Storage interface {
	// ReadFile returns the file content as UTF-8 text.
	ReadFile(ctx context.Context, path string) (string, error)
	// ListFiles returns the names of the regular files directly inside
	// dir, sorted.
	ListFiles(ctx context.Context, dir string) ([]string, error)
	// Exists reports whether a file or directory exists at path.
	Exists(ctx context.Context, path string) (bool, error)
}

// FileStorage reads from the local disk.
type FileStorage struct{}

// NewFileStorage returns a disk-backed Storage.
func NewFileStorage() *FileStorage {
	return &FileStorage{}
}

// ReadFile decodes the file as UTF-8, honoring a UTF-8 or UTF-16 byte
// order mark. Invalid sequences are replaced with U+FFFD.
func (s *FileStorage) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return DecodeText(data), nil
}

// ListFiles returns regular file names in dir. Subdirectories are skipped.
func (s *FileStorage) ListFiles(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether path exists. Permission and other stat errors
// are returned; a missing path is not an error.
func (s *FileStorage) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", path, err)
}

// DecodeText converts raw file bytes to a string, stripping any byte
// order mark and transcoding UTF-16 input.
func DecodeText(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	result, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	return string(bytes.ToValidUTF8(result, []byte("\uFFFD")))
}
