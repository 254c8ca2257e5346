// Package storage persists scan run history so consecutive runs can be
// compared before anything is deleted.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// RunRecord is one completed scan: what the catalog looked like and which
// images came out as deletion candidates.
type RunRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	Region          string    `json:"region"`
	CatalogSize     int       `json:"catalog_size"`
	ReferencedCount int       `json:"referenced_count"`
	Candidates      []string  `json:"candidates"`
}

// Store is a bbolt-backed run history store.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the run store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordRun appends a run. Records are keyed by timestamp, so iteration
// order is chronological.
func (s *Store) RecordRun(rec RunRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	key := []byte(rec.Timestamp.UTC().Format(time.RFC3339Nano))
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("store run record: %w", err)
	}
	return nil
}

// Runs returns up to limit runs, newest first. A limit of zero or less
// returns all of them.
func (s *Store) Runs(limit int) ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode run record %s: %w", k, err)
			}
			runs = append(runs, rec)
			if limit > 0 && len(runs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// LastRun returns the most recent run, or nil if none is recorded.
func (s *Store) LastRun() (*RunRecord, error) {
	runs, err := s.Runs(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
