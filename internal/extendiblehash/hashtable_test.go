package extendiblehash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// identityHash lets the growth scenario reason about exact slot placement,
// the same way the reference test harness substitutes a trivial hash.
func identityHash(key int32) uint64 { return uint64(key) }

func TestGrowth_DirectoryDoublesAndBucketSplits(t *testing.T) {
	tbl := NewWithHash(2, identityHash)

	// With a depth-0 directory, every key lands in slot 0 regardless of
	// its bits, so 0 and 1 both land there and fill the size-2 bucket.
	tbl.Insert(0, 100)
	tbl.Insert(1, 101)
	require.Equal(t, 0, tbl.GlobalDepth())
	require.Equal(t, 1, tbl.NumBuckets())

	// Inserting a third key forces directory doubling to depth 1. The
	// split then separates 0 (even, bit0=0) from 1 (odd, bit0=1); 2
	// (even) now fits in the newly-uncrowded "0" bucket alongside 0.
	tbl.Insert(2, 102)

	require.Equal(t, 1, tbl.GlobalDepth())
	require.Equal(t, 2, tbl.NumBuckets())

	for key, want := range map[int32]int{0: 100, 1: 101, 2: 102} {
		v, ok := tbl.Find(key)
		require.True(t, ok, "key %d should be findable", key)
		require.Equal(t, want, v)
	}
}

func TestUpsert_ReplacesValueForIdempotence(t *testing.T) {
	tbl := New(4)

	tbl.Insert(1, 1)
	tbl.Insert(1, 2)

	v, ok := tbl.Find(1)
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, len(tbl.buckets[tbl.dir[tbl.indexOf(1)]].items))
}

func TestUpsert_OnFullBucketDoesNotSplit(t *testing.T) {
	tbl := NewWithHash(2, identityHash)
	tbl.Insert(0, 1)
	tbl.Insert(1, 2)
	require.Equal(t, 1, tbl.NumBuckets())

	// key 0 already present; updating it must not trigger a split even
	// though its bucket is at capacity.
	tbl.Insert(0, 99)
	require.Equal(t, 1, tbl.NumBuckets())

	v, ok := tbl.Find(0)
	require.True(t, ok)
	require.Equal(t, 99, v)
}

func TestRemove(t *testing.T) {
	tbl := New(4)
	tbl.Insert(7, 42)

	require.True(t, tbl.Remove(7))
	_, ok := tbl.Find(7)
	require.False(t, ok)

	require.False(t, tbl.Remove(7), "removing an absent key is a no-op, not an error")
}

func TestDirectorySlotsShareBucketsByLocalDepthModulus(t *testing.T) {
	tbl := NewWithHash(2, identityHash)
	tbl.Insert(0, 1)
	tbl.Insert(1, 2)
	tbl.Insert(2, 3) // forces the depth-1 split

	require.Equal(t, 2, len(tbl.dir))
	for d := 0; d < len(tbl.dir); d++ {
		require.LessOrEqual(t, tbl.LocalDepth(d), tbl.GlobalDepth())
	}

	// Every key congruent mod 2^localDepth to an existing entry's slot
	// must resolve to the same bucket.
	idx0 := tbl.indexOf(0)
	idx2 := tbl.indexOf(2)
	require.Equal(t, tbl.dir[idx0], tbl.dir[idx2], "0 and 2 are both even, same slot at depth 1")
}

func TestManyInsertsStayFindable(t *testing.T) {
	tbl := New(3)
	const n = 500
	for i := int32(0); i < n; i++ {
		tbl.Insert(i, int(i)*2)
	}
	for i := int32(0); i < n; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok)
		require.Equal(t, int(i)*2, v)
	}
	require.LessOrEqual(t, tbl.GlobalDepth(), 63)
}
