// Package state keeps an optional on-disk copy of the event store so a
// restart resumes where the previous run left off. Saves happen on the
// scheduler's cadence; anything changed after the last save is lost on a
// crash.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"deskcal/internal/model"
)

const (
	bucketState = "state"    // key: keySnapshot -> saved JSON
	keySnapshot = "snapshot" // the whole collection in one value
)

// Saved is the persisted form of a store snapshot.
type Saved struct {
	Version uint64        `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	Events  []model.Event `json:"events"`
}

// File is a bbolt-backed state file.
type File struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the state file at path.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("state path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketState))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &File{db: db}, nil
}

func (f *File) Close() error {
	return f.db.Close()
}

// Save overwrites the stored collection.
func (f *File) Save(version uint64, events []model.Event) error {
	data, err := json.Marshal(Saved{
		Version: version,
		SavedAt: time.Now().UTC(),
		Events:  events,
	})
	if err != nil {
		return err
	}
	return f.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketState)).Put([]byte(keySnapshot), data)
	})
}

// Load returns the stored collection, or nil if nothing was saved yet.
func (f *File) Load() (*Saved, error) {
	var saved *Saved
	err := f.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketState)).Get([]byte(keySnapshot))
		if data == nil {
			return nil
		}
		saved = &Saved{}
		return json.Unmarshal(data, saved)
	})
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return saved, nil
}
