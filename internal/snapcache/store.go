package snapcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fieldtrace/replay-backend-go/internal/models"
)

// ErrBackupMiss is returned by a RemoteBackup when no object exists for
// the requested month.
var ErrBackupMiss = errors.New("backup object not found")

// RemoteBackup mirrors month-keyed cache blobs to remote storage.
// Failures degrade to local-only operation and are never fatal.
type RemoteBackup interface {
	Upload(ctx context.Context, month string, data []byte) error
	Download(ctx context.Context, month string) ([]byte, error)
}

// Store owns the month-partitioned persistent snap cache. Entries are
// immutable once written; writes are buffered in memory behind a dirty
// flag and flushed periodically and on shutdown. Local writes and remote
// backup are serialized per month.
type Store struct {
	dir    string
	backup RemoteBackup

	mu     sync.Mutex
	months map[string]*monthState
}

type monthState struct {
	mu     sync.Mutex // serializes load and local write vs backup for this month
	loaded bool
	cache  models.MonthlyCache
	dirty  bool
}

// OpenStore creates a store rooted at dir. backup may be nil.
func OpenStore(dir string, backup RemoteBackup) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{
		dir:    dir,
		backup: backup,
		months: make(map[string]*monthState),
	}, nil
}

// MonthOf extracts the YYYY-MM partition key from a YYYY-MM-DD date
func MonthOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

func (s *Store) filePath(month string) string {
	return filepath.Join(s.dir, fmt.Sprintf("snapcache-%s.json", month))
}

// month returns the in-memory state for a month, loading it on first use:
// local file first, then remote backup, then an empty cache. The store
// lock only guards the map; the load itself runs under the month lock so
// a slow backup restore never stalls access to other months.
func (s *Store) month(ctx context.Context, month string) *monthState {
	s.mu.Lock()
	ms, ok := s.months[month]
	if !ok {
		ms = &monthState{cache: models.MonthlyCache{Month: month}}
		s.months[month] = ms
	}
	s.mu.Unlock()

	ms.mu.Lock()
	if !ms.loaded {
		s.load(ctx, ms, month)
		ms.loaded = true
	}
	ms.mu.Unlock()
	return ms
}

// load populates a month state. A corrupt local file is treated as a
// miss; cache efficiency is lost, correctness is not. Callers hold the
// month lock.
func (s *Store) load(ctx context.Context, ms *monthState, month string) {
	data, err := os.ReadFile(s.filePath(month))
	if err == nil {
		var cache models.MonthlyCache
		if jsonErr := json.Unmarshal(data, &cache); jsonErr == nil {
			ms.cache = cache
			log.Printf("[SnapCache] Loaded %d entries for %s from local cache", len(cache.Entries), month)
			return
		}
		log.Printf("[SnapCache] Local cache for %s is corrupt, reinitializing", month)
	}

	if s.backup != nil {
		remote, berr := s.backup.Download(ctx, month)
		if berr == nil {
			var cache models.MonthlyCache
			if jsonErr := json.Unmarshal(remote, &cache); jsonErr == nil {
				ms.cache = cache
				ms.dirty = true // persist the restored copy locally
				log.Printf("[SnapCache] Restored %d entries for %s from remote backup", len(cache.Entries), month)
				return
			}
		} else if !errors.Is(berr, ErrBackupMiss) {
			log.Printf("[SnapCache] Backup restore for %s failed: %v", month, berr)
		}
	}
}

// Preload warms the current month at process start
func (s *Store) Preload(ctx context.Context, now time.Time) {
	s.month(ctx, now.Format("2006-01"))
}

// Get returns the cached entry for a key, if any
func (s *Store) Get(ctx context.Context, key models.SnapCacheKey) (models.SnapCacheEntry, bool) {
	ms := s.month(ctx, MonthOf(key.Date))
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, e := range ms.cache.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return models.SnapCacheEntry{}, false
}

// Put buffers a new immutable entry; a re-put for an existing key is a
// no-op so cached coordinates are never rewritten.
func (s *Store) Put(ctx context.Context, entry models.SnapCacheEntry) {
	ms := s.month(ctx, MonthOf(entry.Key.Date))
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, e := range ms.cache.Entries {
		if e.Key == entry.Key {
			return
		}
	}
	ms.cache.Entries = append(ms.cache.Entries, entry)
	ms.dirty = true
}

// Flush writes every dirty month to local storage and mirrors it to the
// remote backup. Backup failures are logged and tolerated; local write
// failures keep the month dirty for the next flush.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	months := make(map[string]*monthState, len(s.months))
	for k, v := range s.months {
		months[k] = v
	}
	s.mu.Unlock()

	for month, ms := range months {
		ms.mu.Lock()
		if !ms.dirty {
			ms.mu.Unlock()
			continue
		}
		data, err := json.Marshal(ms.cache)
		if err != nil {
			ms.mu.Unlock()
			log.Printf("[SnapCache] Failed to marshal cache for %s: %v", month, err)
			continue
		}
		if err := os.WriteFile(s.filePath(month), data, 0o644); err != nil {
			ms.mu.Unlock()
			log.Printf("[SnapCache] Failed to write cache for %s: %v", month, err)
			continue
		}
		ms.dirty = false

		if s.backup != nil {
			if err := s.backup.Upload(ctx, month, data); err != nil {
				log.Printf("[SnapCache] Backup upload for %s failed (local copy kept): %v", month, err)
			}
		}
		ms.mu.Unlock()
	}
}

// StartPeriodicFlush flushes dirty months on the given interval until ctx
// is cancelled, then performs a final flush.
func (s *Store) StartPeriodicFlush(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Flush(context.Background())
				return
			case <-ticker.C:
				s.Flush(ctx)
			}
		}
	}()
}

// Close flushes all buffered writes
func (s *Store) Close(ctx context.Context) {
	s.Flush(ctx)
}
