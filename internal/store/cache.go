package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// cacheEntry wraps cached data with its expiry bookkeeping.
type cacheEntry struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
	TTL       int             `json:"ttl"`
}

func (s *Store) cachePath(key string) string {
	return filepath.Join(s.root, cacheDir, sanitizeKey(key)+".json")
}

// SaveCache stores data under key with a TTL in seconds.
func (s *Store) SaveCache(key string, data any, ttlSeconds int) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}
	now := s.now()
	entry := cacheEntry{
		Data:      raw,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(ttlSeconds) * time.Second),
		TTL:       ttlSeconds,
	}
	wrapped, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry for %s: %w", key, err)
	}
	return s.writeAtomic(s.cachePath(key), wrapped)
}

// LoadCache reads the value for key into out. It returns false on a miss:
// no entry, or an entry past its expiry. Expired entries are deleted on
// read (lazy expiry).
func (s *Store) LoadCache(key string, out any) (bool, error) {
	raw, err := s.readWithRetry(s.cachePath(key))
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false, fmt.Errorf("failed to parse cache entry for %s: %w", key, err)
	}
	if !s.now().Before(entry.ExpiresAt) {
		if err := os.Remove(s.cachePath(key)); err != nil && !os.IsNotExist(err) {
			s.logger.Debug("Failed to remove expired cache entry",
				zap.String("key", key), zap.Error(err))
		}
		return false, nil
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for %s: %w", key, err)
	}
	return true, nil
}
