// Package index implements a disk-resident B+ tree secondary index over a
// heap-file relation, keyed on a fixed-offset integer attribute. It maps
// key values to RIDs through an index file made of fixed-size pages pinned
// into frames by a shared buffer pool.
package index

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"bptreeidx/types"
)

// Operator is one of the four range-scan comparison operators.
type Operator int

const (
	GT Operator = iota
	GTE
	LT
	LTE
)

// Tree is a single secondary index: one open file, one buffer pool
// connection, and — at most — one active range scan. It takes no locks of
// its own; callers are expected to serialize access, exactly as a
// single-threaded recursion-and-loop engine over a shared buffer manager
// would in any language.
type Tree struct {
	fileID       uint32
	pool         *bufferpool.Pool
	disk         *diskmanager.Manager
	relationName string
	attrOffset   int32
	keyType      types.KeyType

	rootPageID        int64 // current root, global page id
	initialRootPageID int64 // root of the file before any split ever happened

	scan scanState
}

func (t *Tree) isOriginalRoot(pageID int64) bool {
	return pageID == t.initialRootPageID && t.rootPageID == t.initialRootPageID
}

// localOf narrows a global page id to the local page number stored in
// on-disk child/sibling pointers.
func (t *Tree) localOf(globalPageID int64) uint32 {
	return uint32(t.disk.LocalPageID(globalPageID))
}

// globalOf widens a local page number read off disk back to a global id.
func (t *Tree) globalOf(local uint32) int64 {
	return t.disk.GlobalPageID(t.fileID, int64(local))
}

func (t *Tree) fetchLeaf(pageID int64) (leafView, func(dirty bool), error) {
	pg, err := t.pool.FetchPage(pageID)
	if err != nil {
		return leafView{}, nil, err
	}
	unpin := func(dirty bool) { t.pool.UnpinPage(pageID, dirty) }
	return newLeafView(pg.Data), unpin, nil
}

func (t *Tree) fetchInternal(pageID int64) (internalView, func(dirty bool), error) {
	pg, err := t.pool.FetchPage(pageID)
	if err != nil {
		return internalView{}, nil, err
	}
	unpin := func(dirty bool) { t.pool.UnpinPage(pageID, dirty) }
	return newInternalView(pg.Data), unpin, nil
}

func (t *Tree) newLeaf() (int64, leafView, error) {
	pg, err := t.pool.NewPage(t.fileID, types.PageTypeIndexNode)
	if err != nil {
		return 0, leafView{}, err
	}
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	return pg.ID, newLeafView(pg.Data), nil
}

func (t *Tree) newInternal() (int64, internalView, error) {
	pg, err := t.pool.NewPage(t.fileID, types.PageTypeIndexNode)
	if err != nil {
		return 0, internalView{}, err
	}
	for i := range pg.Data {
		pg.Data[i] = 0
	}
	return pg.ID, newInternalView(pg.Data), nil
}
