// Package bufferpool implements the buffer pool manager: it owns the
// frame array and free list, allocates page ids, and coordinates an
// extendible hash table and an LRU-K replacer against a disk backend to
// serve NewPage/FetchPage/UnpinPage/FlushPage/DeletePage.
package bufferpool

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/novastore/pagecache/internal/config"
	"github.com/novastore/pagecache/internal/extendiblehash"
	"github.com/novastore/pagecache/internal/lruk"
)

// DiskManager is the narrow disk-I/O collaborator the pool reads through
// and writes back to. internal/diskmanager.Manager satisfies this.
type DiskManager interface {
	ReadPage(pid int32, dst []byte) error
	WritePage(pid int32, src []byte) error
	DeallocatePage(pid int32) error
}

// replacer is the subset of internal/lruk.Replacer the pool depends on.
type replacer interface {
	RecordAccess(fid int)
	SetEvictable(fid int, evictable bool)
	Evict() (fid int, ok bool)
	Remove(fid int)
	Size() int
}

// pageTable is the subset of internal/extendiblehash.Table the pool
// depends on: page-id -> frame-index.
type pageTable interface {
	Find(key int32) (int, bool)
	Insert(key int32, value int)
	Remove(key int32) bool
}

// Manager is the buffer pool core: a fixed-size array of frames, a free
// list, a page table, a replacer, and a disk backend, all serialized by
// a single mutex. The lock order is pool -> (page table | replacer);
// never the reverse.
type Manager struct {
	mu sync.Mutex

	pages    []*Frame
	table    pageTable
	replacer replacer
	disk     DiskManager
	logger   *slog.Logger

	freeList   []int
	nextPageID int32
	stats      Stats
}

// New returns a buffer pool of poolSize frames, each pageSize bytes,
// backed by disk. replacerK and bucketSize configure the LRU-K replacer
// and extendible hash table respectively, matching the three
// construction parameters named in the disk-backed storage engine's
// buffer pool design. A nil logger defaults to slog.Default().
func New(poolSize, replacerK, bucketSize, pageSize int, disk DiskManager, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	pages := make([]*Frame, poolSize)
	freeList := make([]int, poolSize)
	for i := range pages {
		pages[i] = newFrame(pageSize)
		freeList[i] = i
	}
	return &Manager{
		pages:    pages,
		table:    extendiblehash.New(bucketSize),
		replacer: lruk.New(poolSize, replacerK),
		disk:     disk,
		logger:   logger,
		freeList: freeList,
	}
}

// NewFromConfig builds a pool from cfg's Buffer and Storage sections
// (PoolSize, ReplacerK, BucketSize, PageSize), the construction path
// described for a standalone process assembling its own pool.
func NewFromConfig(cfg *config.Config, disk DiskManager, logger *slog.Logger) *Manager {
	return New(cfg.Buffer.PoolSize, cfg.Buffer.ReplacerK, cfg.Buffer.BucketSize, cfg.Storage.PageSize, disk, logger)
}

// AllocatePage hands out the next monotonically increasing page id.
func (m *Manager) AllocatePage() int32 {
	pid := m.nextPageID
	m.nextPageID++
	return pid
}

// DeallocatePage is a hook for a future free-space manager; delegates to
// the disk backend, which currently treats it as a no-op.
func (m *Manager) DeallocatePage(pid int32) error {
	return m.disk.DeallocatePage(pid)
}

// victimLocked pops a free frame id, falling back to evicting one via the
// replacer. Writes back the victim's contents if dirty. Must be called
// with m.mu held.
func (m *Manager) victimLocked() (int, bool) {
	if n := len(m.freeList); n > 0 {
		fid := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return fid, true
	}

	fid, ok := m.replacer.Evict()
	if !ok {
		return 0, false
	}
	m.stats.Evictions++

	frame := m.pages[fid]
	if frame.Dirty {
		if err := m.disk.WritePage(frame.PageID, frame.Data); err != nil {
			m.logger.Warn("writeback failed during eviction", "page_id", frame.PageID, "err", err)
		} else {
			m.stats.DiskWrites++
		}
		frame.Dirty = false
	}
	m.table.Remove(frame.PageID)
	return fid, true
}

// NewPage allocates a fresh page id, binds it to a victim frame, and
// returns a pinned handle to its (zeroed) contents.
func (m *Manager) NewPage() (*Frame, int32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.victimLocked()
	if !ok {
		m.logger.Warn("new page failed", "err", ErrNoFreeFrame)
		return nil, InvalidPageID, false
	}

	pid := m.AllocatePage()
	m.table.Insert(pid, fid)

	frame := m.pages[fid]
	frame.reset()
	frame.PageID = pid
	frame.PinCount = 1

	m.replacer.RecordAccess(fid)
	m.replacer.SetEvictable(fid, false)

	return frame, pid, true
}

// FetchPage returns a pinned handle to pid's contents, reading it from
// disk on a miss. A cache hit only bumps pin_count; it deliberately does
// not call RecordAccess (preserved open-question behavior).
func (m *Manager) FetchPage(pid int32) (*Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.table.Find(pid); ok {
		m.stats.Hits++
		frame := m.pages[fid]
		frame.PinCount++
		return frame, true
	}
	m.stats.Misses++

	fid, ok := m.victimLocked()
	if !ok {
		m.logger.Warn("fetch page failed", "page_id", pid, "err", ErrNoFreeFrame)
		return nil, false
	}

	frame := m.pages[fid]
	frame.reset()
	frame.PageID = pid
	frame.PinCount = 1

	if err := m.disk.ReadPage(pid, frame.Data); err != nil {
		m.logger.Warn("disk read failed", "page_id", pid, "err", err)
	} else {
		m.stats.DiskReads++
	}

	m.replacer.RecordAccess(fid)
	m.replacer.SetEvictable(fid, false)
	m.table.Insert(pid, fid)

	return frame, true
}

// UnpinPage drops one reference to pid. If the caller mutated the page,
// is_dirty sets (never clears) the dirty bit. Once pin_count reaches
// zero the frame becomes eligible for eviction again.
func (m *Manager) UnpinPage(pid int32, isDirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.table.Find(pid)
	if !ok {
		return false
	}
	frame := m.pages[fid]
	if frame.PinCount == 0 {
		return false
	}

	if isDirty {
		frame.Dirty = true
	}
	frame.PinCount--
	if frame.PinCount == 0 {
		m.replacer.SetEvictable(fid, true)
	}
	return true
}

// FlushPage writes pid's bytes to disk regardless of pin_count or the
// dirty bit, and clears the dirty bit on success.
func (m *Manager) FlushPage(pid int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.table.Find(pid)
	if !ok {
		return false
	}
	frame := m.pages[fid]
	if err := m.disk.WritePage(pid, frame.Data); err != nil {
		m.logger.Warn("flush page failed", "page_id", pid, "err", err)
		return false
	}
	m.stats.DiskWrites++
	frame.Dirty = false
	return true
}

// FlushAllPages writes back every dirty frame, aggregating per-frame I/O
// failures instead of bailing on the first one. It does not clear the
// dirty bits it flushes (preserved open-question behavior).
func (m *Manager) FlushAllPages() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error
	for _, frame := range m.pages {
		if !frame.Dirty {
			continue
		}
		if err := m.disk.WritePage(frame.PageID, frame.Data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("page %d: %w", frame.PageID, err))
			continue
		}
		m.stats.DiskWrites++
	}
	return errs
}

// DeletePage removes pid from the pool. A page not currently resident is
// vacuously deleted (true). A pinned page is refused.
func (m *Manager) DeletePage(pid int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.table.Find(pid)
	if !ok {
		return true
	}
	frame := m.pages[fid]
	if frame.PinCount > 0 {
		m.logger.Debug("delete page refused", "page_id", pid, "err", ErrPagePinned)
		return false
	}

	m.table.Remove(pid)
	m.replacer.Remove(fid)
	frame.reset()
	m.freeList = append(m.freeList, fid)

	if err := m.disk.DeallocatePage(pid); err != nil {
		m.logger.Warn("deallocate page failed", "page_id", pid, "err", err)
	}
	return true
}

// GetPinCount reports pid's current pin count, if resident.
func (m *Manager) GetPinCount(pid int32) (int32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.table.Find(pid)
	if !ok {
		return 0, false
	}
	return m.pages[fid].PinCount, true
}

// NumFreeFrames reports how many frames are currently unassigned.
func (m *Manager) NumFreeFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.freeList)
}

// Stats returns a snapshot of the pool's hit/miss/eviction/IO counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
