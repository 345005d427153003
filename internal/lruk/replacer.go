// Package lruk implements the LRU-K eviction policy: the replacer tracks
// per-frame access history and, on Evict, selects the evictable frame
// whose backward k-distance is largest.
package lruk

import (
	"container/list"
	"fmt"
	"math"
	"sync"
)

const infiniteDistance = math.MaxInt64

// frameInfo is the per-frame bookkeeping the replacer keeps: its access
// history (oldest first, capped at k entries), whether it's currently
// eligible for eviction, and its position in the recency list.
type frameInfo struct {
	fid       int
	evictable bool
	history   []int64
	elem      *list.Element
}

func (f *frameInfo) kDistance(k int) int64 {
	if len(f.history) < k {
		return infiniteDistance
	}
	return f.history[len(f.history)-1] - f.history[0]
}

func (f *frameInfo) firstAccess() int64 {
	return f.history[0]
}

// Replacer is a mutex-guarded LRU-K replacer for a fixed number of
// frames [0, numFrames).
type Replacer struct {
	mu        sync.Mutex
	numFrames int
	k         int
	tick      int64
	currSize  int
	frames    map[int]*frameInfo
	recency   *list.List // intrusive recency list; PushBack on each access
}

// New returns an LRU-K replacer tracking up to numFrames frame IDs, each
// remembering up to k access timestamps.
func New(numFrames, k int) *Replacer {
	if k <= 0 {
		k = 1
	}
	return &Replacer{
		numFrames: numFrames,
		k:         k,
		frames:    make(map[int]*frameInfo),
		recency:   list.New(),
	}
}

func (r *Replacer) checkBounds(fid int) {
	if fid < 0 || fid >= r.numFrames {
		panic(fmt.Sprintf("lruk: frame id %d out of range [0,%d)", fid, r.numFrames))
	}
}

// RecordAccess records that fid was touched at the current tick. A frame
// seen for the first time starts out non-evictable.
func (r *Replacer) RecordAccess(fid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkBounds(fid)

	now := r.tick
	r.tick++

	if fi, ok := r.frames[fid]; ok {
		if len(fi.history) == r.k {
			fi.history = fi.history[1:]
		}
		fi.history = append(fi.history, now)
		r.recency.MoveToBack(fi.elem)
		return
	}

	fi := &frameInfo{fid: fid, history: []int64{now}}
	fi.elem = r.recency.PushBack(fi)
	r.frames[fid] = fi
}

// SetEvictable toggles whether fid may be chosen as an eviction victim.
// curr_size only changes on an actual true<->false transition. An id
// that was never recorded is silently ignored, per spec: only an
// out-of-range id is a contract violation here.
func (r *Replacer) SetEvictable(fid int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkBounds(fid)

	fi, ok := r.frames[fid]
	if !ok {
		return
	}
	if fi.evictable == evictable {
		return
	}
	fi.evictable = evictable
	if evictable {
		r.currSize++
	} else {
		r.currSize--
	}
}

// Evict selects the evictable frame with the largest backward k-distance
// (ties broken by earliest first-access), removes its history, and
// reports it. It returns false if no frame is currently evictable.
func (r *Replacer) Evict() (fid int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currSize == 0 {
		return 0, false
	}

	var victim *frameInfo
	var victimDistance int64
	for _, fi := range r.frames {
		if !fi.evictable {
			continue
		}
		d := fi.kDistance(r.k)
		switch {
		case victim == nil:
			victim, victimDistance = fi, d
		case d > victimDistance:
			victim, victimDistance = fi, d
		case d == victimDistance && fi.firstAccess() < victim.firstAccess():
			victim, victimDistance = fi, d
		}
	}

	r.recency.Remove(victim.elem)
	delete(r.frames, victim.fid)
	r.currSize--
	return victim.fid, true
}

// Remove evicts fid regardless of its k-distance, bypassing victim
// selection. It is a no-op if fid isn't tracked. Calling it on a
// tracked-but-non-evictable frame is a contract violation.
func (r *Replacer) Remove(fid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkBounds(fid)

	fi, ok := r.frames[fid]
	if !ok {
		return
	}
	if !fi.evictable {
		panic(fmt.Sprintf("lruk: Remove called on non-evictable frame %d", fid))
	}
	r.recency.Remove(fi.elem)
	delete(r.frames, fid)
	r.currSize--
}

// Size returns the number of currently evictable frames.
func (r *Replacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currSize
}
