// Package page defines the in-memory frame shared by every on-disk page
// kind this module writes: index metadata, index nodes, and heap data
// pages. The buffer pool moves these frames between disk and memory; it
// never interprets Data itself, that is the job of diskmanager (to tag a
// page type) and of heapfile/index (to read and write the bytes).
package page

import (
	"bptreeidx/types"
	"sync"
)

const (
	Size = types.PageSize
)

// Page is a pinned or unpinned frame living in the buffer pool. Data is
// always exactly Size bytes, regardless of how much of the page format is
// actually in use.
type Page struct {
	ID       int64 // global page id: fileID<<32 | local page number
	FileID   uint32
	Data     []byte
	IsDirty  bool
	PinCount int32
	PageType types.PageType
	mu       sync.RWMutex
}

func (p *Page) Lock() {
	p.mu.Lock()
}

func (p *Page) Unlock() {
	p.mu.Unlock()
}

func (p *Page) RLock() {
	p.mu.RLock()
}

func (p *Page) RUnlock() {
	p.mu.RUnlock()
}
