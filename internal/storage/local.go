package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/config"
	"github.com/techmengg/wnreader/internal/log"
	"github.com/techmengg/wnreader/internal/util"
)

type LocalStorage struct {
	// Root of the storage tree
	Root string
}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{Root: config.Opts.Data}
}

func (s *LocalStorage) Save(key string, r io.Reader) (string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create storage directory")
	}

	fullPath = util.GenerateNewFileName(fullPath)

	// Write to a temp file first so a crash never leaves a half-written
	// archive under a valid key.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "failed to write upload")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", errors.Wrap(err, "failed to move upload into place")
	}

	newKey, err := filepath.Rel(s.Root, fullPath)
	if err != nil {
		return "", err
	}
	newKey = filepath.ToSlash(newKey)

	log.Debug("Stored file", zap.String("key", newKey))
	return newKey, nil
}

func (s *LocalStorage) Load(key string) ([]byte, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return data, nil
}

// Remove deletes the stored file, and its parent directory once empty.
// Removing an absent key is not an error.
func (s *LocalStorage) Remove(key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "failed to remove %s", key)
	}
	if dir := filepath.Dir(fullPath); dir != filepath.Clean(s.Root) {
		if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debug("Keeping non-empty storage directory", zap.String("path", dir))
		}
	}
	return nil
}

// resolve maps a key onto the storage root and rejects keys escaping it.
func (s *LocalStorage) resolve(key string) (string, error) {
	fullPath := filepath.Join(s.Root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.Root, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("storage key escapes the root: %q", key)
	}
	return fullPath, nil
}
