// Package store persists resources in a bbolt database, one bucket per
// kind, and exposes a client that keeps the query and full-text indexes
// in step with every write.
package store

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrNotFound signals a fetch for a resource the store does not hold.
var ErrNotFound = errors.New("resource not found")

// Store is the durable resource repository. Keys are primary keys; values
// are the JSON encoding of the resource.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open resource store: %w", err)
	}
	return &Store{db: db}, nil
}

// Save writes the raw resource under its kind's bucket.
func (s *Store) Save(kindTag, name string, raw []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(kindTag))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", kindTag, err)
		}
		return bucket.Put([]byte(name), raw)
	})
}

// Fetch reads one resource. The returned slice is a copy and stays valid
// after the transaction.
func (s *Store) Fetch(kindTag, name string) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(kindTag))
		if bucket == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, kindTag, name)
		}
		value := bucket.Get([]byte(name))
		if value == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, kindTag, name)
		}
		raw = make([]byte, len(value))
		copy(raw, value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Delete removes one resource. Deleting an absent resource is a no-op.
func (s *Store) Delete(kindTag, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(kindTag))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(name))
	})
}

// List visits every resource of a kind in key order.
func (s *Store) List(kindTag string, visit func(name string, raw []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(kindTag))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			return visit(string(k), v)
		})
	})
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}
