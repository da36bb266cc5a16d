// Package outbox exposes a directory of pending messages, one file each.
package outbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry is one pending message.
type Entry struct {
	Name string
	Path string
}

// Dir is a file-backed outbox. Files are created by other processes; the
// consumer reads and then deletes them. Nothing makes discover, send and
// delete atomic: a failed delete means the message will be seen again.
type Dir struct {
	Path string
}

// Next returns the first regular file of the directory listing, or nil when
// there is none. A missing directory is an empty outbox.
func (d Dir) Next() (*Entry, error) {
	entries, err := os.ReadDir(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		return &Entry{Name: e.Name(), Path: filepath.Join(d.Path, e.Name())}, nil
	}
	return nil, nil
}

func (d Dir) Read(e *Entry) (string, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", e.Name, err)
	}
	return string(data), nil
}

func (d Dir) Remove(e *Entry) error {
	if err := os.Remove(e.Path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", e.Name, err)
	}
	return nil
}

// Put writes a new message file, for tools and tests that feed the outbox.
func (d Dir) Put(name, text string) (*Entry, error) {
	if err := os.MkdirAll(d.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create outbox: %w", err)
	}
	path := filepath.Join(d.Path, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return &Entry{Name: name, Path: path}, nil
}
