package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileModel keeps the aggregate in memory and persists it as one JSON document
type FileModel struct {
	*State
}

var _ Model = (*FileModel)(nil)

// NewFileModel returns an in-memory model; nothing is read or written until Load or Save
func NewFileModel(opts Options) (*FileModel, error) {
	state, err := NewState(opts)
	if err != nil {
		return nil, err
	}
	return &FileModel{State: state}, nil
}

// Save writes the whole aggregate to uri through a temp file and rename, so
// a failed save leaves the previous document in place.
func (m *FileModel) Save(uri string) error {
	path, err := m.resolve(uri)
	if err != nil {
		return err
	}

	data, err := EncodeDocument(m.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode activities: %w", err)
	}
	if err := WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	m.logger.Debug("model saved", "path", path, "entries", m.Len())
	return nil
}

// Load replaces the in-memory aggregate with the document at uri
func (m *FileModel) Load(uri string) error {
	path, err := m.resolve(uri)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	snap, err := DecodeDocument(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := m.Replace(snap); err != nil {
		return err
	}

	m.logger.Debug("model loaded", "path", path, "entries", m.Len())
	return nil
}

// Close is a no-op; the file is only open during Save and Load
func (m *FileModel) Close() error {
	return nil
}

func (m *FileModel) resolve(uri string) (string, error) {
	if uri == "" {
		return m.storeURI, nil
	}
	return ValidateURI(uri)
}

// WriteFileAtomic writes data to a temp file beside path and renames it into place
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
