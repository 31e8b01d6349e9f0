// Package storage manages the on-disk layout of the assistant's data
// directory: raw uploads under evidence/, the vector index under vector_db/,
// and conversation logs under conversations/.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fortress-assistant/internal/model"
)

type Store struct {
	dataDir string
}

// New creates the data directory tree if needed.
func New(dataDir string) (*Store, error) {
	s := &Store{dataDir: dataDir}
	for _, dir := range []string{s.EvidenceDir(), s.VectorDBDir(), s.ConversationsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Store) EvidenceDir() string      { return filepath.Join(s.dataDir, "evidence") }
func (s *Store) VectorDBDir() string      { return filepath.Join(s.dataDir, "vector_db") }
func (s *Store) ConversationsDir() string { return filepath.Join(s.dataDir, "conversations") }

// SaveEvidence stores an uploaded file by its original filename. Only the
// base name is used, so uploads cannot escape the evidence directory.
func (s *Store) SaveEvidence(filename string, data []byte) error {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return fmt.Errorf("invalid evidence filename %q", filename)
	}
	path := filepath.Join(s.EvidenceDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save evidence %s: %w", name, err)
	}
	return nil
}

// HasEvidence reports whether an upload is stored under this filename.
func (s *Store) HasEvidence(filename string) bool {
	info, err := os.Stat(filepath.Join(s.EvidenceDir(), filepath.Base(filename)))
	return err == nil && !info.IsDir()
}

// RemoveEvidence deletes a stored upload. Missing files are not an error.
func (s *Store) RemoveEvidence(filename string) error {
	path := filepath.Join(s.EvidenceDir(), filepath.Base(filename))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove evidence %s: %w", filename, err)
	}
	return nil
}

// ListEvidence returns the stored uploads sorted by filename.
func (s *Store) ListEvidence() ([]model.Document, error) {
	entries, err := os.ReadDir(s.EvidenceDir())
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	var docs []model.Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, model.Document{
			Filename:   e.Name(),
			Size:       info.Size(),
			UploadedAt: info.ModTime(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// IndexDiskSize returns the total bytes of the persisted index pair.
func (s *Store) IndexDiskSize() int64 {
	var total int64
	entries, err := os.ReadDir(s.VectorDBDir())
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if info, err := e.Info(); err == nil && !e.IsDir() {
			total += info.Size()
		}
	}
	return total
}
