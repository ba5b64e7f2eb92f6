package index

import (
	"bptreeidx/page"
	"bptreeidx/types"
	"encoding/binary"
)

// Node pages share the same 9-byte reserved header as heap pages: bytes
// 0-7 are unused, byte 8 is the page-type stamp the disk manager writes on
// every flush. Leaf and internal content begins right after it, so a page
// type stamp can never land inside live key/child data.
const headerSize = 9

// Leaf/internal capacities are derived from the page size once, at package
// init, rather than hand-typed — the formula is the one thing that must
// never silently drift from the page layout below it.
var (
	leafCapacity     = (page.Size - headerSize - 4) / (4 + types.RIDSize)
	internalCapacity = func() int {
		n := 0
		for 4+4*(n+1)+4*(n+2) <= page.Size-headerSize {
			n++
		}
		return n
	}()
)

// LeafCapacity returns L, the maximum number of key/RID pairs a leaf page
// can hold.
func LeafCapacity() int { return leafCapacity }

// InternalCapacity returns N, the maximum number of separator keys an
// internal page can hold (it therefore has up to N+1 children).
func InternalCapacity() int { return internalCapacity }

// leafView is a typed accessor over a leaf page's byte buffer. It never
// reinterprets the buffer as a Go struct — every field read or written
// goes through an explicit offset computed from headerSize and the slot
// index, so the accessor can't step outside the page no matter what L is.
type leafView struct {
	data []byte
}

func newLeafView(data []byte) leafView { return leafView{data: data} }

func (v leafView) keyOffset(i int) int { return headerSize + 4*i }
func (v leafView) ridOffset(i int) int { return headerSize + 4*leafCapacity + types.RIDSize*i }
func (v leafView) siblingOffset() int  { return headerSize + 4*leafCapacity + types.RIDSize*leafCapacity }

func (v leafView) Key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(v.data[v.keyOffset(i):]))
}
func (v leafView) SetKey(i int, k int32) {
	binary.LittleEndian.PutUint32(v.data[v.keyOffset(i):], uint32(k))
}

func (v leafView) RID(i int) types.RID {
	off := v.ridOffset(i)
	return types.RID{
		PageNumber: binary.LittleEndian.Uint32(v.data[off:]),
		SlotNumber: binary.LittleEndian.Uint32(v.data[off+4:]),
	}
}
func (v leafView) SetRID(i int, r types.RID) {
	off := v.ridOffset(i)
	binary.LittleEndian.PutUint32(v.data[off:], r.PageNumber)
	binary.LittleEndian.PutUint32(v.data[off+4:], r.SlotNumber)
}

func (v leafView) ClearSlot(i int) {
	v.SetKey(i, 0)
	v.SetRID(i, types.RID{})
}

func (v leafView) RightSibling() uint32 {
	return binary.LittleEndian.Uint32(v.data[v.siblingOffset():])
}
func (v leafView) SetRightSibling(local uint32) {
	binary.LittleEndian.PutUint32(v.data[v.siblingOffset():], local)
}

// Used counts the occupied prefix: the first slot whose RID is the empty
// sentinel marks the end of occupancy, since the occupied prefix invariant
// guarantees nothing meaningful follows it.
func (v leafView) Used() int {
	for i := 0; i < leafCapacity; i++ {
		if v.RID(i).Empty() {
			return i
		}
	}
	return leafCapacity
}

func (v leafView) Full() bool {
	return !v.RID(leafCapacity - 1).Empty()
}

// internalView is the internal-node counterpart of leafView.
type internalView struct {
	data []byte
}

func newInternalView(data []byte) internalView { return internalView{data: data} }

func (v internalView) levelOffset() int     { return headerSize }
func (v internalView) keyOffset(i int) int  { return headerSize + 4 + 4*i }
func (v internalView) childOffset(i int) int {
	return headerSize + 4 + 4*internalCapacity + 4*i
}

// Level reports whether children are leaves (1) or internal nodes (0).
func (v internalView) Level() uint32 {
	return binary.LittleEndian.Uint32(v.data[v.levelOffset():])
}
func (v internalView) SetLevel(level uint32) {
	binary.LittleEndian.PutUint32(v.data[v.levelOffset():], level)
}

func (v internalView) Key(i int) int32 {
	return int32(binary.LittleEndian.Uint32(v.data[v.keyOffset(i):]))
}
func (v internalView) SetKey(i int, k int32) {
	binary.LittleEndian.PutUint32(v.data[v.keyOffset(i):], uint32(k))
}

func (v internalView) Child(i int) uint32 {
	return binary.LittleEndian.Uint32(v.data[v.childOffset(i):])
}
func (v internalView) SetChild(i int, local uint32) {
	binary.LittleEndian.PutUint32(v.data[v.childOffset(i):], local)
}

func (v internalView) ClearKey(i int) { v.SetKey(i, 0) }
func (v internalView) ClearChild(i int) { v.SetChild(i, 0) }

// Used counts occupied separators: the first zero child pointer marks the
// end of occupancy. Keys may legitimately be zero, so only child pointers
// can serve as the empty-slot sentinel here.
func (v internalView) Used() int {
	for i := 1; i <= internalCapacity; i++ {
		if v.Child(i) == 0 {
			return i - 1
		}
	}
	return internalCapacity
}

func (v internalView) Full() bool {
	return v.Child(internalCapacity) != 0
}
