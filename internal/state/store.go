package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mr-karan/wgmesh/internal/apierr"
)

// Store is the lock-guarded, atomically-replaced document store.
type Store struct {
	path string
	lock *fileLock
}

// New returns a Store backed by the document at path, locking via
// "<path>.lock" (or the explicit lockPath if non-empty).
func New(path, lockPath string) *Store {
	s := &Store{path: path}
	if lockPath != "" {
		s.lock = &fileLock{path: lockPath}
	} else {
		s.lock = newFileLock(path)
	}
	return s
}

// Load acquires the lock, reads and schema-validates the document, and
// releases the lock. A missing file yields a fresh empty document, not
// an error.
func (s *Store) Load() (Document, error) {
	if err := s.lock.acquire(); err != nil {
		return Document{}, err
	}
	defer s.lock.release()

	return s.loadLocked()
}

func (s *Store) loadLocked() (Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewEmptyDocument(), nil
		}
		return Document{}, fmt.Errorf("reading state file: %w", err)
	}

	doc, err := validateAndDecode(raw)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// UpdateFunc mutates a Document in place and returns an opaque result to
// propagate back to the Update caller.
type UpdateFunc func(doc *Document) (any, error)

// Update acquires the lock, loads the document, invokes fn (which may
// mutate it), persists the result atomically, and releases the lock.
// Returns whatever fn returns. If fn returns an error, nothing is
// persisted.
func (s *Store) Update(fn UpdateFunc) (any, error) {
	if err := s.lock.acquire(); err != nil {
		return nil, err
	}
	defer s.lock.release()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	result, err := fn(&doc)
	if err != nil {
		return nil, err
	}

	doc.UpdatedAt = time.Now()
	if err := s.persist(doc); err != nil {
		return nil, err
	}
	return result, nil
}

// persist implements the atomic-replace pipeline:
// serialize -> write temp -> fsync -> rename -> best-effort dir fsync.
func (s *Store) persist(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", s.path, time.Now().UnixNano())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsyncing temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp state file into place: %w", err)
	}

	if dir, err := os.Open(filepath.Dir(s.path)); err == nil {
		_ = dir.Sync() // best-effort; failures ignored
		dir.Close()
	}

	return nil
}

// validateAndDecode decodes raw JSON and rejects any shape that doesn't
// match the Document schema, including unknown top-level keys that a
// bare json.Unmarshal into Document would otherwise silently ignore.
func validateAndDecode(raw []byte) (Document, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Document{}, apierr.New(apierr.KindCorruptState, fmt.Sprintf("state file is not valid JSON: %v", err))
	}

	allowed := map[string]bool{"version": true, "updatedAt": true, "interfaces": true, "peers": true}
	for k := range generic {
		if !allowed[k] {
			return Document{}, apierr.New(apierr.KindCorruptState, fmt.Sprintf("unknown field %q in state document", k))
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, apierr.New(apierr.KindCorruptState, fmt.Sprintf("state document does not match schema: %v", err))
	}
	if doc.Version != 1 {
		return Document{}, apierr.New(apierr.KindCorruptState, fmt.Sprintf("unsupported state version %d", doc.Version))
	}
	if doc.Interfaces == nil {
		doc.Interfaces = make(map[string]InterfaceRecord)
	}
	if doc.Peers == nil {
		doc.Peers = make([]Peer, 0)
	}
	return doc, nil
}
