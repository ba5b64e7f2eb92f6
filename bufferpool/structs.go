package bufferpool

import (
	"bptreeidx/diskmanager"
	"bptreeidx/page"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// Pool manages cached pages in memory, evicting through a ristretto
// recency/frequency oracle. It works for both heap file pages and B+ tree
// index pages — both are addressed the same way, by global page id.
type Pool struct {
	pages    map[int64]*page.Page // pageID -> Page
	capacity int
	disk     *diskmanager.Manager

	recency    *ristretto.Cache[int64, int64] // admission/recency oracle, keyed and valued by pageID
	victims    chan int64                     // ids ristretto's policy chose to evict
	victimsMu  sync.Mutex
	pendingSet map[int64]struct{} // ids currently sitting in victims, to avoid double-queuing

	mu sync.Mutex
}

// Stats reports a snapshot of pool occupancy.
type Stats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}
