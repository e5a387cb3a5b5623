// Package store persists validation run records as one JSON document per id,
// plus a TTL-expiring cache namespace. Writes are atomic (temp file + rename)
// so a concurrent reader never observes a partial document; reads tolerate
// racing writers with a bounded retry loop.
//
// There is no cross-process locking. Two processes updating the same id can
// lose one of the updates; that is a known, accepted limitation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"ideagauge/internal/types"
)

const (
	validationsDir = "validations"
	cacheDir       = "cache"

	readAttempts = 3
	readDelay    = 50 * time.Millisecond
)

// ErrNotFound is returned when no document exists for the requested id.
// It is checked on the first read attempt only; a missing file never
// triggers the retry loop.
var ErrNotFound = errors.New("record not found")

// ErrTransient is returned when a document exists but could not be read
// as valid JSON within the retry budget, which happens when every attempt
// raced a writer. Callers should retry later rather than treat the record
// as missing.
var ErrTransient = errors.New("record transiently unavailable")

// Store is a file-backed record store rooted at a single directory.
type Store struct {
	root   string
	logger *zap.Logger

	// injectable for tests
	now        func() time.Time
	retryDelay time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger. The default is a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a store rooted at dir, creating the namespace directories
// if needed.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		root:       dir,
		logger:     zap.NewNop(),
		now:        time.Now,
		retryDelay: readDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, sub := range []string{validationsDir, cacheDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return s, nil
}

func (s *Store) validationPath(id string) string {
	return filepath.Join(s.root, validationsDir, sanitizeKey(id)+".json")
}

// SaveValidation serializes the whole record and writes it atomically.
func (s *Store) SaveValidation(rec *types.ValidationRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}
	if err := s.writeAtomic(s.validationPath(rec.ID), data); err != nil {
		return err
	}
	s.logger.Debug("Saved validation record",
		zap.String("id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.Int("progress", rec.Progress))
	return nil
}

// LoadValidation reads the record for id, retrying short-lived read races.
// Returns ErrNotFound if no document exists, ErrTransient if the document
// never became readable within the retry budget.
func (s *Store) LoadValidation(id string) (*types.ValidationRecord, error) {
	raw, err := s.readWithRetry(s.validationPath(id))
	if err != nil {
		return nil, err
	}
	var rec types.ValidationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", id, err)
	}
	return &rec, nil
}

// UpdateValidation performs a read-modify-shallow-merge-write: the fields
// present in patch replace the corresponding top-level fields of the stored
// document, everything else is preserved. Returns the merged record.
func (s *Store) UpdateValidation(id string, patch map[string]any) (*types.ValidationRecord, error) {
	raw, err := s.readWithRetry(s.validationPath(id))
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", id, err)
	}
	for k, v := range patch {
		doc[k] = v
	}
	merged, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged record %s: %w", id, err)
	}
	var rec types.ValidationRecord
	if err := json.Unmarshal(merged, &rec); err != nil {
		return nil, fmt.Errorf("merged record %s is not a valid ValidationRecord: %w", id, err)
	}
	if err := s.writeAtomic(s.validationPath(id), merged); err != nil {
		return nil, err
	}
	s.logger.Debug("Updated validation record",
		zap.String("id", id),
		zap.Int("fields", len(patch)))
	return &rec, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, s.now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // Clean up
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// readWithRetry reads path, retrying empty or syntactically invalid content
// that indicates a racing writer. A missing file is reported immediately.
func (s *Store) readWithRetry(path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryDelay)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				if attempt == 0 {
					return nil, ErrNotFound
				}
				// The file existed on an earlier attempt; a writer may be
				// mid-rename. Keep trying.
				lastErr = err
				continue
			}
			lastErr = err
			continue
		}
		if len(raw) == 0 || !json.Valid(raw) {
			lastErr = fmt.Errorf("incomplete document (%d bytes)", len(raw))
			s.logger.Debug("Retrying read of incomplete document",
				zap.String("path", path),
				zap.Int("attempt", attempt+1))
			continue
		}
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrTransient, filepath.Base(path), lastErr)
}

// sanitizeKey maps an arbitrary key to a safe file name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
