package repository

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
	"github.com/samber/oops"
)

// FileStore implements Store with a single JSON document on disk
type FileStore struct {
	path string
	mu   sync.RWMutex
	doc  *domain.Document
}

// NewFileStore loads the document at path, starting empty when the file
// does not exist. A corrupt file fails startup when strict is set and is
// otherwise logged and replaced by empty state on the next save.
func NewFileStore(path string, strict bool) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, oops.With("path", path, "context", "failed to create storage directory").Wrap(err)
		}
	}

	s := &FileStore{path: path, doc: domain.NewDocument()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, oops.With("path", path, "context", "failed to read state file").Wrap(err)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		if strict {
			return nil, oops.With("path", path, "parse_error", err.Error()).Wrap(errors.ErrCorruptState)
		}
		slog.Warn("State file is corrupt, starting with empty state", "path", path, "error", err)
		return s, nil
	}

	doc.Normalize()
	s.doc = &doc
	return s, nil
}

func (s *FileStore) View(fn func(doc *domain.Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

func (s *FileStore) Update(fn func(doc *domain.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.doc.Clone()
	if err != nil {
		return oops.With("path", s.path, "context", "failed to copy state").Wrap(err)
	}
	if err := fn(next); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// write rewrites the whole document, going through a temp file so a crash
// mid-write never leaves a truncated state file behind
func (s *FileStore) write(doc *domain.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return oops.With("path", s.path, "context", "failed to marshal state").Wrap(err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return oops.With("path", tmp, "context", "failed to write state file").Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return oops.With("path", s.path, "context", "failed to replace state file").Wrap(err)
	}
	return nil
}
