package bufferpool

import "errors"

var (
	// ErrNoFreeFrame is logged by NewPage/FetchPage, which then return
	// false, when every frame is pinned and the replacer has nothing
	// evictable to offer.
	ErrNoFreeFrame = errors.New("bufferpool: no free frame available (all pinned)")

	// ErrPagePinned is logged by DeletePage, which then returns false,
	// when the page is still referenced by at least one caller.
	ErrPagePinned = errors.New("bufferpool: page is pinned")
)
