package heapfile

import (
	"bptreeidx/page"
	"encoding/binary"
	"fmt"
)

// Standalone functions over *page.Page for heap page operations — methods
// can't be defined on a type from another package, so the page stays a
// dumb byte buffer and heapfile owns its layout.
//
// Heap page binary layout (all values little-endian):
//
//	Offset  Size  Field
//	───────────────────────────────────────────────
//	8       1     PageType         uint8  — stamped by the disk manager
//	9       4     FileID           uint32
//	13      4     PageNo           uint32
//	17      2     RecordEndPtr     uint16 — first free byte after last record
//	19      2     SlotRegionStart  uint16 — first byte of the slot directory
//	21      2     NumRows          uint16 — live records
//	23      2     NumRowsFree      uint16 — tombstone slots
//	25      2     IsPageFull       uint16 — 1 when no usable space remains
//	27      2     SlotCount        uint16 — total slot entries (live + tombstone)
//	───────────────────────────────────────────────
//	29            HeaderSize
//
// Bytes 0-7 are left zero; the disk manager's page-type byte at offset 8 is
// the only header field shared with the index page format.
//
//	[ header 29B ][ records -> ][ free space ][ <- slot dir ]
//	0            29             ^             ^              4096
//	                            RecordEndPtr  SlotRegionStart
//
// Records grow forward from HeaderSize; the slot directory grows backward
// from the end of the page. Slot i lives at PageSize-(i+1)*SlotSize.
const (
	offPageType        = 8
	offFileID          = 9
	offPageNo          = 13
	offRecordEndPtr    = 17
	offSlotRegionStart = 19
	offNumRows         = 21
	offNumRowsFree     = 23
	offIsPageFull      = 25
	offSlotCount       = 27

	HeaderSize = 29
	SlotSize   = 4
)

// InitPage stamps a fresh heap-page header into pg.Data.
func InitPage(pg *page.Page) {
	for i := 0; i < page.Size; i++ {
		pg.Data[i] = 0
	}

	binary.LittleEndian.PutUint32(pg.Data[offFileID:], pg.FileID)
	binary.LittleEndian.PutUint32(pg.Data[offPageNo:], 0)
	binary.LittleEndian.PutUint16(pg.Data[offRecordEndPtr:], HeaderSize)
	binary.LittleEndian.PutUint16(pg.Data[offSlotRegionStart:], page.Size)
	binary.LittleEndian.PutUint16(pg.Data[offNumRows:], 0)
	binary.LittleEndian.PutUint16(pg.Data[offNumRowsFree:], 0)
	binary.LittleEndian.PutUint16(pg.Data[offIsPageFull:], 0)
	binary.LittleEndian.PutUint16(pg.Data[offSlotCount:], 0)

	pg.IsDirty = true
}

// InsertRecord writes data into the page and returns its slot index.
func InsertRecord(pg *page.Page, data []byte) (slotIdx uint16, err error) {
	recordLen := uint16(len(data))
	if recordLen == 0 {
		return 0, fmt.Errorf("InsertRecord: data must not be empty")
	}
	if FreeSpace(pg) < int(recordLen) {
		return 0, fmt.Errorf("InsertRecord: need %d bytes, only %d available", recordLen, FreeSpace(pg))
	}

	slotIdx = GetSlotCount(pg)
	for i := uint16(0); i < GetSlotCount(pg); i++ {
		if _, l := readSlot(pg, i); l == 0 {
			slotIdx = i
			break
		}
	}

	recordOffset := GetRecordEndPtr(pg)
	copy(pg.Data[recordOffset:], data)
	setRecordEndPtr(pg, recordOffset+recordLen)
	writeSlot(pg, slotIdx, recordOffset, recordLen)

	if slotIdx == GetSlotCount(pg) {
		setSlotRegionStart(pg, GetSlotRegionStart(pg)-SlotSize)
		setSlotCount(pg, GetSlotCount(pg)+1)
	} else {
		setNumRowsFree(pg, GetNumRowsFree(pg)-1)
	}
	setNumRows(pg, GetNumRows(pg)+1)

	if FreeSpace(pg) <= 0 {
		setIsPageFull(pg, true)
	}

	pg.IsDirty = true
	return slotIdx, nil
}

// GetRecord returns a copy of the record at slotIdx.
func GetRecord(pg *page.Page, slotIdx uint16) ([]byte, error) {
	if slotIdx >= GetSlotCount(pg) {
		return nil, fmt.Errorf("GetRecord: slot %d out of range (count=%d)", slotIdx, GetSlotCount(pg))
	}
	offset, length := readSlot(pg, slotIdx)
	if length == 0 {
		return nil, fmt.Errorf("GetRecord: slot %d is a tombstone", slotIdx)
	}
	out := make([]byte, length)
	copy(out, pg.Data[offset:offset+length])
	return out, nil
}

// DeleteRecord marks slotIdx as a tombstone. Space is not reclaimed until
// the page is rewritten — the slot entry stays so existing RIDs stay valid
// (no compaction pass; compaction would invalidate live index entries and
// deleting index entries is out of scope for this module).
func DeleteRecord(pg *page.Page, slotIdx uint16) error {
	if slotIdx >= GetSlotCount(pg) {
		return fmt.Errorf("DeleteRecord: slot %d out of range (count=%d)", slotIdx, GetSlotCount(pg))
	}
	if _, length := readSlot(pg, slotIdx); length == 0 {
		return fmt.Errorf("DeleteRecord: slot %d already deleted", slotIdx)
	}
	writeSlot(pg, slotIdx, 0, 0)
	setNumRows(pg, GetNumRows(pg)-1)
	setNumRowsFree(pg, GetNumRowsFree(pg)+1)
	setIsPageFull(pg, false)
	pg.IsDirty = true
	return nil
}
