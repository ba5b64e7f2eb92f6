package bufferpool

import (
	"bptreeidx/page"
	"fmt"
)

// GetStats returns a snapshot of buffer pool occupancy.
func (bp *Pool) GetStats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := Stats{
		TotalPages: len(bp.pages),
		Capacity:   bp.capacity,
	}

	for _, pg := range bp.pages {
		pg.RLock()
		if pg.PinCount > 0 {
			stats.PinnedPages++
		}
		if pg.IsDirty {
			stats.DirtyPages++
		}
		pg.RUnlock()
	}

	return stats
}

// Reset flushes every dirty page and empties the pool. Intended for tests.
func (bp *Pool) Reset() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, pg := range bp.pages {
		pg.Lock()
		if pg.IsDirty && bp.disk != nil {
			if err := bp.disk.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("failed to flush page during reset: %w", err)
			}
		}
		pg.Unlock()
	}

	bp.pages = make(map[int64]*page.Page, bp.capacity)
	return nil
}

// Size returns the current number of resident pages.
func (bp *Pool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

// Capacity returns the pool's maximum page-frame count.
func (bp *Pool) Capacity() int {
	return bp.capacity
}

// GetPage returns a resident page without touching disk, or nil if absent.
func (bp *Pool) GetPage(pageID int64) *page.Page {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.pages[pageID]
}

// MarkDirty flags a resident page as modified.
func (bp *Pool) MarkDirty(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg.Lock()
	pg.IsDirty = true
	pg.Unlock()

	return nil
}
