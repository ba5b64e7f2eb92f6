package heapfile

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"sync"
)

// Slot is an entry in the slot directory at the bottom of a page, growing
// backward from the end of the page.
type Slot struct {
	Offset uint16 // byte offset from start of page to record data
	Length uint16 // byte length of the record (0 = tombstone)
}

// File represents a single heap file on disk: one relation's worth of
// slotted data pages.
type File struct {
	fileID   uint32
	name     string
	disk     *diskmanager.Manager
	pool     *bufferpool.Pool
	filePath string
	mu       sync.RWMutex
}

// Manager opens, creates, and looks up heap files by relation name.
type Manager struct {
	baseDir string
	files   map[uint32]*File
	byName  map[string]uint32
	pool    *bufferpool.Pool
	disk    *diskmanager.Manager
	mu      sync.RWMutex
}
