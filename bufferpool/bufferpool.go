package bufferpool

import (
	"bptreeidx/diskmanager"
	"bptreeidx/page"
	"bptreeidx/types"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// Pool caches pages in memory and hands them to disk manager to flush when
// evicted or explicitly asked to. Pages are identified by global page id.
//
// Eviction victim selection is delegated to a ristretto cache used purely
// as a recency/frequency oracle: every fetch and unpin touches it with a
// cost of 1, and ristretto's own admission policy (TinyLFU sketch backing
// an LRU sample) decides what falls out. Its OnEvict callback feeds a
// small victim channel that the pool drains when it actually needs to
// steal a frame — skipping anything ristretto nominated that has since
// been re-pinned.

// New creates a buffer pool with the given page-frame capacity.
func New(capacity int, disk *diskmanager.Manager) *Pool {
	bp := &Pool{
		pages:      make(map[int64]*page.Page, capacity),
		capacity:   capacity,
		disk:       disk,
		victims:    make(chan int64, capacity+1),
		pendingSet: make(map[int64]struct{}),
	}

	cache, err := ristretto.NewCache(&ristretto.Config[int64, int64]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[int64]) {
			bp.queueVictim(item.Value)
		},
	})
	if err != nil {
		// ristretto.Config validation only fails on programmer error
		// (non-positive NumCounters/MaxCost); a zero-capacity pool is
		// never constructed by this module, so this can't happen.
		panic(fmt.Sprintf("bufferpool: ristretto init failed: %v", err))
	}
	bp.recency = cache

	return bp
}

func (bp *Pool) queueVictim(pageID int64) {
	bp.victimsMu.Lock()
	defer bp.victimsMu.Unlock()
	if _, already := bp.pendingSet[pageID]; already {
		return
	}
	bp.pendingSet[pageID] = struct{}{}
	select {
	case bp.victims <- pageID:
	default:
		delete(bp.pendingSet, pageID)
	}
}

func (bp *Pool) touch(pageID int64) {
	bp.recency.Set(pageID, pageID, 1)
}

// FetchPage retrieves a page, loading it from disk if necessary, and
// returns it pinned (pin count incremented).
func (bp *Pool) FetchPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if pg, exists := bp.pages[pageID]; exists {
		fmt.Printf("[bufferpool] HIT  pageID=%d pinCount=%d\n", pageID, pg.PinCount)
		bp.touch(pageID)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		return pg, nil
	}

	fmt.Printf("[bufferpool] MISS pageID=%d — loading from disk\n", pageID)
	if bp.disk == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pg, err := bp.disk.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d from disk: %w", pageID, err)
	}

	if err := bp.addPage(pg); err != nil {
		return nil, fmt.Errorf("failed to add page to buffer pool: %w", err)
	}

	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	return pg, nil
}

// NewPage allocates a fresh page for fileID through the disk manager,
// builds a blank in-memory frame for it, marks it dirty, and pins it.
func (bp *Pool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.disk == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pageID, err := bp.disk.AllocatePage(fileID, pageType)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate page: %w", err)
	}

	pg := &page.Page{
		ID:       pageID,
		FileID:   fileID,
		Data:     make([]byte, page.Size),
		PageType: pageType,
		IsDirty:  true,
	}

	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	if err := bp.addPage(pg); err != nil {
		pg.Lock()
		pg.PinCount--
		pg.Unlock()
		return nil, fmt.Errorf("failed to add new page to buffer pool: %w", err)
	}

	return pg, nil
}

// UnpinPage decrements a page's pin count and optionally marks it dirty.
func (bp *Pool) UnpinPage(pageID int64, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if isDirty {
		pg.IsDirty = true
	}

	bp.touch(pageID)
	return nil
}

// FlushPage writes a page to disk if it is dirty.
func (bp *Pool) FlushPage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg.Lock()
	defer pg.Unlock()

	if !pg.IsDirty {
		return nil
	}

	if err := bp.disk.WritePage(pg); err != nil {
		return fmt.Errorf("failed to flush page %d: %w", pageID, err)
	}

	pg.IsDirty = false
	return nil
}

// FlushAllPages writes every dirty page in the pool to disk.
func (bp *Pool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.disk == nil {
		return fmt.Errorf("disk manager not set")
	}

	fmt.Printf("[bufferpool] FlushAllPages — pool size=%d\n", len(bp.pages))

	for pageID, pg := range bp.pages {
		pg.Lock()
		if pg.IsDirty {
			if err := bp.disk.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("failed to flush page %d: %w", pageID, err)
			}
			fmt.Printf("[bufferpool]   flushed pageID=%d\n", pageID)
			pg.IsDirty = false
		}
		pg.Unlock()
	}

	return nil
}

// addPage adds a page to the pool, evicting a victim if at capacity.
// Assumes bp.mu is held.
func (bp *Pool) addPage(pg *page.Page) error {
	if _, exists := bp.pages[pg.ID]; exists {
		bp.touch(pg.ID)
		return nil
	}

	if len(bp.pages) >= bp.capacity {
		if err := bp.evict(); err != nil {
			return fmt.Errorf("failed to evict page: %w", err)
		}
	}

	bp.pages[pg.ID] = pg
	bp.touch(pg.ID)
	return nil
}

// evict removes one unpinned page from the pool, flushing it first if
// dirty. It drains ristretto's victim queue for candidates and falls back
// to scanning the pool if the queue is empty or every nominee turns out to
// be pinned or stale — ristretto's policy is advisory, not authoritative;
// the pool must still guarantee forward progress on its own.
// Assumes bp.mu is held.
func (bp *Pool) evict() error {
	for {
		pageID, ok := bp.nextVictim()
		if !ok {
			break
		}
		if bp.tryEvict(pageID) {
			return nil
		}
	}

	for pageID := range bp.pages {
		if bp.tryEvict(pageID) {
			return nil
		}
	}

	return fmt.Errorf("all pages are pinned, cannot evict")
}

func (bp *Pool) nextVictim() (int64, bool) {
	bp.victimsMu.Lock()
	defer bp.victimsMu.Unlock()
	select {
	case id := <-bp.victims:
		delete(bp.pendingSet, id)
		return id, true
	default:
		return 0, false
	}
}

// tryEvict attempts to evict pageID, returning false if it is not
// currently in the pool or is pinned. Assumes bp.mu is held.
func (bp *Pool) tryEvict(pageID int64) bool {
	pg, exists := bp.pages[pageID]
	if !exists {
		return false
	}

	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount > 0 {
		return false
	}

	fmt.Printf("[bufferpool] EVICT pageID=%d dirty=%v\n", pageID, pg.IsDirty)
	if pg.IsDirty && bp.disk != nil {
		if err := bp.disk.WritePage(pg); err != nil {
			return false
		}
		pg.IsDirty = false
	}

	delete(bp.pages, pageID)
	bp.recency.Del(pageID)
	return true
}

// DeletePage removes a page outright; it refuses to drop a pinned page.
func (bp *Pool) DeletePage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return nil
	}

	pg.Lock()
	if pg.PinCount > 0 {
		pg.Unlock()
		return fmt.Errorf("cannot delete pinned page %d", pageID)
	}
	pg.Unlock()

	delete(bp.pages, pageID)
	bp.recency.Del(pageID)
	return nil
}

// Close releases the ristretto cache's background goroutines.
func (bp *Pool) Close() {
	bp.recency.Close()
}
