// Package subscribers adapts the bot command collaborator's subscriber table
// (spec.md §6: a single table "(recipient_id PRIMARY KEY, subscribed_at)")
// into the read-only SubscriberStore surface the broadcaster needs.
//
// This is deliberately a stub for an external collaborator: spec.md §1 places
// the bot command surface (subscribe/unsubscribe) out of scope for the core.
// It is still backed by a real, persistent store so the broadcaster (C9) has
// something concrete and testable to fan out against, grounded on the
// teacher's internal/infra/telegram/peersmgr.Service bbolt-open/bucket
// pattern.
package subscribers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName         = "subscribers"
	dbFileMode os.FileMode = 0o600
	dbOpenTimeout       = time.Second
)

var bucketNameBytes = []byte(bucketName)

// Store is a bbolt-backed, durable set of subscriber recipient IDs.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt database at path and ensures the
// subscriber bucket exists.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("subscribers: ensure dir %q: %w", dir, err)
		}
	}

	db, err := bbolt.Open(path, dbFileMode, &bbolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("subscribers: open db: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists(bucketNameBytes)
		return bucketErr
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("subscribers: create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add registers recipientID as a subscriber, storing its subscription time.
// Idempotent: re-adding an existing subscriber overwrites its timestamp.
func (s *Store) Add(recipientID string, subscribedAt time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNameBytes)
		return b.Put([]byte(recipientID), []byte(subscribedAt.UTC().Format(time.RFC3339)))
	})
}

// Contains reports whether recipientID is currently subscribed.
func (s *Store) Contains(recipientID string) bool {
	found := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNameBytes)
		found = b.Get([]byte(recipientID)) != nil
		return nil
	})
	return found
}

// Subscribers returns a snapshot of every currently subscribed recipient ID.
// Order is unspecified (bbolt iterates keys in byte order); the broadcaster
// treats delivery order across recipients as unordered anyway (spec.md §5).
func (s *Store) Subscribers() []string {
	var ids []string
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNameBytes)
		return b.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids
}

// Remove drops recipientID from the subscriber set. Called by the
// broadcaster (C9) when a recipient reports a terminal delivery failure
// (blocked the bot, account deleted).
func (s *Store) Remove(recipientID string) {
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNameBytes)
		return b.Delete([]byte(recipientID))
	})
}
