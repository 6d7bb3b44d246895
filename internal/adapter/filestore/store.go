// Package filestore keeps one credential directory per session under a common root.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tunzy-shop/tunzy-session/internal/domain"
)

const (
	metadataFile = "session.json"
	dirMode      = 0o700
	fileMode     = 0o600
)

// Store maps session IDs to <root>/<id>. Directories for different sessions never
// overlap, so only metadata rewrites need the mutex.
type Store struct {
	root  string
	clock clockwork.Clock
	mu    sync.Mutex
}

func NewStore(root string, clock clockwork.Clock) *Store {
	return &Store{root: root, clock: clock}
}

func (s *Store) Root() string {
	return s.root
}

// EnsureRoot creates the sessions root. Called once at start-up.
func (s *Store) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create sessions root %s: %w", s.root, err)
	}
	return nil
}

// Path returns the directory for id without touching the filesystem.
func (s *Store) Path(id string) (string, error) {
	if !domain.ValidSessionID(id) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, id)
	}
	return filepath.Join(s.root, id), nil
}

// Create makes sure the session directory exists and carries metadata. Calling it
// again for the same id leaves the existing metadata untouched.
func (s *Store) Create(ctx context.Context, id string, mode domain.SessionMode) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	dir, err := s.Path(id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return domain.Session{}, fmt.Errorf("failed to create session dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := readMetadata(dir)
	if err != nil {
		return domain.Session{}, err
	}
	if meta == nil {
		meta = &domain.SessionMetadata{ID: id, Mode: mode, CreatedAt: s.clock.Now().UTC()}
		if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
			return domain.Session{}, fmt.Errorf("failed to write session metadata: %w", err)
		}
	}

	return domain.Session{ID: id, Dir: dir, Mode: meta.Mode, CreatedAt: meta.CreatedAt}, nil
}

// MarkLinked records that the session finished linking a device.
func (s *Store) MarkLinked(id string, at time.Time) error {
	dir, err := s.Path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := readMetadata(dir)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = &domain.SessionMetadata{ID: id}
	}
	at = at.UTC()
	meta.Linked = true
	meta.LinkedAt = &at

	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return fmt.Errorf("failed to write session metadata: %w", err)
	}
	return nil
}

// Remove deletes the session directory and everything in it.
func (s *Store) Remove(id string) error {
	dir, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove session dir: %w", err)
	}
	return nil
}

// Count returns the number of session directories under the root.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sessions root: %w", err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() {
			n++
		}
	}
	return n, nil
}

// List returns metadata for every session directory, oldest first. Directories
// without a metadata file are reported with their modification time.
func (s *Store) List() ([]domain.SessionMetadata, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions root: %w", err)
	}

	var out []domain.SessionMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		meta, err := readMetadata(dir)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			info, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
			}
			meta = &domain.SessionMetadata{ID: e.Name(), CreatedAt: info.ModTime().UTC()}
		}
		out = append(out, *meta)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Writable verifies a file can be created in the root.
func (s *Store) Writable(_ context.Context) error {
	f, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("sessions root not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// readMetadata returns nil without error when the metadata file does not exist.
func readMetadata(dir string) (*domain.SessionMetadata, error) {
	b, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session metadata: %w", err)
	}

	var meta domain.SessionMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode session metadata in %s: %w", dir, err)
	}
	return &meta, nil
}

// writeJSON writes via a temp file in the same directory, then renames over path.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(fileMode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
