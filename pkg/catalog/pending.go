package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mirandadam/hsync/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// pendingBatchSize bounds how long a read transaction stays open while
// the reader works through the backlog.
const pendingBatchSize = 256

// PendingIterator yields backlog rows in stable source-path order. It
// fetches records in short read transactions so the writer's MarkSynced
// commits interleave freely; a row marked synced between batches is
// simply not yielded. Keys advance monotonically, so already-yielded
// rows are never revisited.
type PendingIterator struct {
	cat     *Catalog
	lastKey []byte
	batch   []*types.FileRecord
	idx     int
	done    bool
}

// PendingIterator returns a fresh iterator over the backlog
func (c *Catalog) PendingIterator() *PendingIterator {
	return &PendingIterator{cat: c}
}

// Next returns the next pending record, or (nil, nil) once the backlog
// is exhausted.
func (it *PendingIterator) Next() (*types.FileRecord, error) {
	for {
		if it.idx < len(it.batch) {
			rec := it.batch[it.idx]
			it.idx++
			return rec, nil
		}
		if it.done {
			return nil, nil
		}
		if err := it.fill(); err != nil {
			return nil, err
		}
		if len(it.batch) == 0 {
			it.done = true
			return nil, nil
		}
	}
}

func (it *PendingIterator) fill() error {
	it.batch = it.batch[:0]
	it.idx = 0

	return it.cat.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bucketFiles).Cursor()

		var k, v []byte
		if it.lastKey == nil {
			k, v = cur.First()
		} else {
			k, v = cur.Seek(it.lastKey)
			if bytes.Equal(k, it.lastKey) {
				k, v = cur.Next()
			}
		}

		for ; k != nil && len(it.batch) < pendingBatchSize; k, v = cur.Next() {
			it.lastKey = append(it.lastKey[:0], k...)

			var rec types.FileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt record %s: %w", k, err)
			}
			if rec.Status != types.StatusPending {
				continue
			}
			r := rec
			it.batch = append(it.batch, &r)
		}
		return nil
	})
}
