// Package extendiblehash implements a concurrent-safe extendible hash
// table mapping page IDs to frame indices, per the directory-doubling /
// bucket-splitting scheme described in CMU's BusTub buffer pool design.
package extendiblehash

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// entry is a single key-value pair stored inside a bucket.
type entry struct {
	key   int32
	value int
}

type bucket struct {
	localDepth int
	size       int
	items      []entry
}

func newBucket(size, localDepth int) *bucket {
	return &bucket{localDepth: localDepth, size: size}
}

func (b *bucket) isFull() bool { return len(b.items) >= b.size }

func (b *bucket) find(key int32) (int, bool) {
	for _, e := range b.items {
		if e.key == key {
			return e.value, true
		}
	}
	return 0, false
}

// upsert returns true if key already existed (its value was replaced).
func (b *bucket) upsert(key int32, value int) bool {
	for i := range b.items {
		if b.items[i].key == key {
			b.items[i].value = value
			return true
		}
	}
	b.items = append(b.items, entry{key: key, value: value})
	return false
}

func (b *bucket) remove(key int32) bool {
	for i, e := range b.items {
		if e.key == key {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// Table is a concurrent-safe page-id -> frame-index map, dynamically
// growing its directory by doubling and splitting individual buckets
// rather than rehashing the whole table.
type Table struct {
	mu          sync.Mutex
	globalDepth int
	bucketSize  int
	hashFunc    func(int32) uint64
	dir         []int     // directory slot -> bucket id
	buckets     []*bucket // arena of buckets indexed by bucket id
}

// New returns an extendible hash table whose buckets each hold up to
// bucketSize entries before a split is triggered. Keys are hashed with
// xxhash.
func New(bucketSize int) *Table {
	return NewWithHash(bucketSize, defaultHash)
}

// NewWithHash is New with an injectable hash function, primarily so tests
// can substitute an identity hash for deterministic bucket placement.
func NewWithHash(bucketSize int, h func(int32) uint64) *Table {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	return &Table{
		bucketSize: bucketSize,
		hashFunc:   h,
		dir:        []int{0},
		buckets:    []*bucket{newBucket(bucketSize, 0)},
	}
}

func defaultHash(key int32) uint64 {
	var buf [4]byte
	buf[0] = byte(key)
	buf[1] = byte(key >> 8)
	buf[2] = byte(key >> 16)
	buf[3] = byte(key >> 24)
	return xxhash.Sum64(buf[:])
}

func (t *Table) indexOf(key int32) int {
	mask := (1 << t.globalDepth) - 1
	return int(t.hashFunc(key)) & mask
}

// Find returns the value mapped to key, if present.
func (t *Table) Find(key int32) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findLocked(key)
}

func (t *Table) findLocked(key int32) (int, bool) {
	b := t.buckets[t.dir[t.indexOf(key)]]
	return b.find(key)
}

// Remove deletes key from the table, reporting whether it was present.
// Buckets are never merged back together (a lazy policy, simpler and
// always safe: an under-full bucket is still a correct bucket).
func (t *Table) Remove(key int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.buckets[t.dir[t.indexOf(key)]]
	return b.remove(key)
}

// Insert upserts key -> value, growing the directory and/or splitting
// buckets as many times as needed to make room.
func (t *Table) Insert(key int32, value int) {
	t.mu.Lock()
	for {
		idx := t.indexOf(key)
		bucketID := t.dir[idx]
		b := t.buckets[bucketID]
		_, exists := b.find(key)

		if !b.isFull() || exists {
			b.upsert(key, value)
			t.mu.Unlock()
			return
		}

		if b.localDepth == t.globalDepth {
			t.growGlobal()
		}
		t.splitBucket(t.dir[idx])
		// retry with the (possibly new) target bucket; the lock is held
		// throughout via this loop instead of releasing and recursing.
	}
}

// growGlobal doubles the directory. No buckets move: slot i and slot
// i+oldSize both keep referencing the bucket slot i used to reference.
func (t *Table) growGlobal() {
	t.dir = append(t.dir, t.dir...)
	t.globalDepth++
}

// splitBucket splits the bucket with arena id bucketID into two new
// buckets of local depth old+1, redistributes its
// entries, and repoints every directory slot that used to reference the
// old bucket at whichever of the two new buckets matches its newly
// significant bit.
func (t *Table) splitBucket(bucketID int) {
	old := t.buckets[bucketID]
	oldLocalDepth := old.localDepth
	newLocalDepth := oldLocalDepth + 1
	splitBit := 1 << oldLocalDepth

	zeroBucket := newBucket(t.bucketSize, newLocalDepth)
	oneBucket := newBucket(t.bucketSize, newLocalDepth)
	for _, e := range old.items {
		if int(t.hashFunc(e.key))&splitBit == 0 {
			zeroBucket.upsert(e.key, e.value)
		} else {
			oneBucket.upsert(e.key, e.value)
		}
	}

	zeroID := bucketID
	t.buckets[zeroID] = zeroBucket
	t.buckets = append(t.buckets, oneBucket)
	oneID := len(t.buckets) - 1

	for i, bID := range t.dir {
		if bID != bucketID {
			continue
		}
		if i&splitBit == 0 {
			t.dir[i] = zeroID
		} else {
			t.dir[i] = oneID
		}
	}
}

// GlobalDepth reports the current directory depth (directory length is
// 2^GlobalDepth).
func (t *Table) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// LocalDepth reports the local depth of the bucket referenced by
// directory slot dirIdx.
func (t *Table) LocalDepth(dirIdx int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buckets[t.dir[dirIdx]].localDepth
}

// NumBuckets reports how many distinct buckets currently exist.
func (t *Table) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}
