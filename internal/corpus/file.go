package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/errors"
)

// LoadFile reads the crawler's JSON export: an array of publication objects.
func LoadFile(path string) ([]Publication, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", apperrors.ErrCorpusUnavailable, path, err)
	}
	var pubs []Publication
	if err := json.Unmarshal(data, &pubs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if pubs == nil {
		pubs = []Publication{}
	}
	return pubs, nil
}

// SaveFile writes pubs as an indented JSON array. The file is replaced
// atomically so concurrent readers never see a partial export.
func SaveFile(path string, pubs []Publication) error {
	if pubs == nil {
		pubs = []Publication{}
	}
	data, err := json.MarshalIndent(pubs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding publications: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".docs-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// FileStore serves the corpus straight from a JSON export on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) List(ctx context.Context) ([]Publication, error) {
	return LoadFile(s.path)
}

func (s *FileStore) Replace(ctx context.Context, pubs []Publication) error {
	return SaveFile(s.path, pubs)
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	pubs, err := LoadFile(s.path)
	if err != nil {
		return 0, err
	}
	return len(pubs), nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrCorpusUnavailable, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
