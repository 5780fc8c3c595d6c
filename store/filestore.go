package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileStore keeps each document as a JSON file under a data directory.
// Saves go through a temp file and rename so a crash mid-write never
// leaves a truncated document behind.
type FileStore struct {
	dir    string
	logger *logrus.Logger
}

func NewFileStore(dir string, logger *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	logger.WithFields(logrus.Fields{
		"data_dir": dir,
	}).Info("File store initialized")

	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(kind Kind) string {
	return filepath.Join(s.dir, string(kind)+".json")
}

func (s *FileStore) Load(_ context.Context, kind Kind, v interface{}) error {
	path := s.path(kind)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithFields(logrus.Fields{
				"kind":  string(kind),
				"path":  path,
				"error": err.Error(),
			}).Warn("Failed to read document, starting empty")
		}
		return nil
	}

	if !json.Valid(data) {
		s.logger.WithFields(logrus.Fields{
			"kind": string(kind),
			"path": path,
		}).Warn("Stored document is corrupt, starting empty")
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.WithFields(logrus.Fields{
			"kind":  string(kind),
			"path":  path,
			"error": err.Error(),
		}).Warn("Failed to decode document, starting empty")
		return nil
	}

	return nil
}

func (s *FileStore) Save(_ context.Context, kind Kind, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", kind, err)
	}

	path := s.path(kind)
	tmp, err := os.CreateTemp(s.dir, string(kind)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", kind, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file for %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", kind, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s document: %w", kind, err)
	}

	return nil
}
