// Package textstore persists extracted page text under content-addressed
// filenames, one subdirectory per batch. The layout is
// <root>/<batch>/<content-id>.txt with the batch manifest alongside.
package textstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
)

// Store is a content-addressed text artifact store rooted at one output
// directory.
type Store struct {
	root string
}

// New returns a store rooted at root. The directory is created lazily on
// first write.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// BatchDir returns the directory holding one batch's artifacts.
func (s *Store) BatchDir(batch string) string {
	return filepath.Join(s.root, batch)
}

// Path returns the artifact path for a content identifier within a batch.
func (s *Store) Path(batch string, id contentid.ID) string {
	return filepath.Join(s.root, batch, id.Filename())
}

// Write stores the text for a content identifier and returns the artifact
// path. Writing the same identifier again replaces the previous artifact;
// content is deterministic per URL, so last-writer-wins is safe.
func (s *Store) Write(batch string, id contentid.ID, text string) (string, error) {
	dir := s.BatchDir(batch)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create batch directory %s: %w", dir, err)
	}
	path := s.Path(batch, id)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return path, nil
}

// Exists reports whether an artifact is already stored for the identifier.
func (s *Store) Exists(batch string, id contentid.ID) bool {
	info, err := os.Stat(s.Path(batch, id))
	return err == nil && !info.IsDir()
}

// Read returns the stored text for a content identifier.
func (s *Store) Read(batch string, id contentid.ID) (string, error) {
	data, err := os.ReadFile(s.Path(batch, id))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return string(data), nil
}

// Artifact is one stored text file.
type Artifact struct {
	Batch string
	ID    contentid.ID
	Path  string
}

// Walk lists every stored artifact, ordered by batch name and then by
// filename. Non-text files (the batch manifests in particular) are skipped.
func (s *Store) Walk() ([]Artifact, error) {
	batches, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store root %s: %w", s.root, err)
	}

	var artifacts []Artifact
	for _, batchEntry := range batches {
		if !batchEntry.IsDir() {
			continue
		}
		batch := batchEntry.Name()
		files, err := os.ReadDir(filepath.Join(s.root, batch))
		if err != nil {
			return nil, fmt.Errorf("failed to read batch directory %s: %w", batch, err)
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".txt") {
				continue
			}
			names = append(names, f.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			path := filepath.Join(s.root, batch, name)
			artifacts = append(artifacts, Artifact{
				Batch: batch,
				ID:    contentid.FromArtifactPath(path),
				Path:  path,
			})
		}
	}
	return artifacts, nil
}
