package catalog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mirandadam/hsync/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketFiles = []byte("files")
	bucketDest  = []byte("dest_entries")
	bucketMeta  = []byte("meta")

	keyLifetimeBytes = []byte("lifetime_bytes")
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Catalog implements Store using BoltDB. Every mutation runs in its
// own write transaction, so a state transition is durable before it is
// observable and the file survives abrupt termination.
type Catalog struct {
	db *bolt.DB
}

// Open opens or creates the catalog database at path
func Open(path string) (*Catalog, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketFiles, bucketDest, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// Close closes the database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// UpsertScanned inserts or refreshes a record from the scanner. When
// needsTransfer is set the row joins the backlog, otherwise it is
// recorded as synced. A previously stored hash is retained only while
// the stored (size, mtime) still match the incoming values.
func (c *Catalog) UpsertScanned(rec *types.FileRecord, needsTransfer bool) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		key := []byte(rec.SourcePath)

		hash := ""
		if data := b.Get(key); data != nil {
			var prev types.FileRecord
			if err := json.Unmarshal(data, &prev); err != nil {
				return fmt.Errorf("corrupt record %s: %w", rec.SourcePath, err)
			}
			if prev.Hash != "" && prev.Size == rec.Size && prev.Mtime == rec.Mtime {
				hash = prev.Hash
			}
		}

		stored := *rec
		stored.Hash = hash
		if needsTransfer {
			stored.Status = types.StatusPending
		} else {
			stored.Status = types.StatusSynced
		}

		data, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// GetRecord retrieves a record by source path
func (c *Catalog) GetRecord(sourcePath string) (*types.FileRecord, error) {
	var rec types.FileRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		data := b.Get([]byte(sourcePath))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkSynced flips a record to synced and stores the transfer hash in
// the same transaction, together with the lifetime byte counter. This
// is the writer's completion commit.
func (c *Catalog) MarkSynced(sourcePath, hash string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		key := []byte(sourcePath)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, sourcePath)
		}

		var rec types.FileRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("corrupt record %s: %w", sourcePath, err)
		}
		rec.Status = types.StatusSynced
		rec.Hash = hash

		updated, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		if err := b.Put(key, updated); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		total := btoi(meta.Get(keyLifetimeBytes)) + rec.Size
		return meta.Put(keyLifetimeBytes, itob(total))
	})
}

// DeleteRecord removes a record. Only the sweeper deletes rows.
func (c *Catalog) DeleteRecord(sourcePath string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFiles).Delete([]byte(sourcePath))
	})
}

// CountPending returns the number of backlog rows
func (c *Catalog) CountPending() (int64, error) {
	var n int64
	err := c.forEachPending(func(*types.FileRecord) error {
		n++
		return nil
	})
	return n, err
}

// BytesPending returns the total size of the backlog, the ETA
// denominator for the transfer phase
func (c *Catalog) BytesPending() (int64, error) {
	var total int64
	err := c.forEachPending(func(rec *types.FileRecord) error {
		total += rec.Size
		return nil
	})
	return total, err
}

func (c *Catalog) forEachPending(fn func(*types.FileRecord) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(k, v []byte) error {
			var rec types.FileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt record %s: %w", k, err)
			}
			if rec.Status != types.StatusPending {
				return nil
			}
			return fn(&rec)
		})
	})
}

// PutDestEntry records one destination path seen by the destination
// walker
func (c *Catalog) PutDestEntry(e *types.DestEntry) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDest).Put([]byte(e.RelPath), data)
	})
}

// ClearDestEntries empties the destination inventory before a fresh
// destination walk
func (c *Catalog) ClearDestEntries() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketDest); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketDest)
		return err
	})
}

// DestEntriesIn visits destination entries whose relative path starts
// with prefix, in key order. An empty prefix visits everything.
func (c *Catalog) DestEntriesIn(prefix string, fn func(*types.DestEntry) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bucketDest).Cursor()
		p := []byte(prefix)
		for k, v := cur.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = cur.Next() {
			var e types.DestEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("corrupt dest entry %s: %w", k, err)
			}
			if err := fn(&e); err != nil {
				return err
			}
		}
		return nil
	})
}

// LifetimeBytes returns the cumulative bytes transferred by this
// catalog across all runs
func (c *Catalog) LifetimeBytes() (int64, error) {
	var total int64
	err := c.db.View(func(tx *bolt.Tx) error {
		total = btoi(tx.Bucket(bucketMeta).Get(keyLifetimeBytes))
		return nil
	})
	return total, err
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}
