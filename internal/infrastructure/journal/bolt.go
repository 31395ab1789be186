// Package journal keeps the activity log in a local BoltDB file. Keys are
// "<unix-nanos>_<id>" so a cursor walks entries in chronological order.
package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/leadboard/domain"
	"github.com/fastygo/leadboard/internal/listing"
	"github.com/fastygo/leadboard/repository"
)

const defaultBucket = "activity"

// Store wraps BoltDB to persist journal entries.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

var _ repository.ActivityLog = (*Store)(nil)

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	bucket := []byte(defaultBucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: bucket}, nil
}

// Record appends an entry, filling in a missing id or timestamp.
func (s *Store) Record(ctx context.Context, entry domain.ActivityEntry) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := buildKey(entry.Timestamp, entry.ID)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(key, payload)
	})
}

// List returns matching entries newest first.
func (s *Store) List(ctx context.Context, filter repository.ActivityFilter, window listing.Window) (listing.Page[domain.ActivityEntry], error) {
	if s == nil || s.db == nil {
		return listing.Page[domain.ActivityEntry]{}, bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return listing.Page[domain.ActivityEntry]{}, err
	}

	offset, limit := window.Offset(), window.Limit()
	var (
		items []domain.ActivityEntry
		total int
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry domain.ActivityEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if !matches(entry, filter) {
				continue
			}
			if total >= offset && len(items) < limit {
				items = append(items, entry)
			}
			total++
		}
		return nil
	})
	if err != nil {
		return listing.Page[domain.ActivityEntry]{}, err
	}
	return listing.NewPage(items, total, window), nil
}

// Prune removes entries recorded before the given time and reports how many.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	bound := buildKey(before, "")
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, bound) < 0; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Size returns the number of stored entries.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func matches(entry domain.ActivityEntry, filter repository.ActivityFilter) bool {
	if filter.Entity != "" && entry.Entity != filter.Entity {
		return false
	}
	if filter.EntityID != 0 && entry.EntityID != filter.EntityID {
		return false
	}
	return true
}

func buildKey(ts time.Time, id string) []byte {
	nanos := ts.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	return []byte(fmt.Sprintf("%020d_%s", nanos, id))
}
