package heapfile

import (
	"bptreeidx/types"
	"encoding/binary"
	"fmt"
)

// Scanner walks every live record of a heap file in page/slot order. It is
// the "heap-file relation scanner" the index's bulk load drives when it is
// opened over a relation that already has rows — there is no SQL engine
// above this module to hand the index a cursor of its own, so this module
// supplies a small concrete one.
type Scanner struct {
	hf           *File
	totalPages   int64
	localPageNum int64
	slotIdx      uint16
}

// NewScanner opens a scan over hf from its first page.
func (m *Manager) NewScanner(fileID uint32) (*Scanner, error) {
	hf, err := m.ByID(fileID)
	if err != nil {
		return nil, err
	}
	fd, err := hf.disk.GetFileDescriptor(fileID)
	if err != nil {
		return nil, err
	}
	return &Scanner{hf: hf, totalPages: fd.NextPageID}, nil
}

// Next advances to the next live record and returns its RID and raw bytes.
// ok is false once every page has been visited.
func (s *Scanner) Next() (rid types.RID, data []byte, ok bool, err error) {
	for s.localPageNum < s.totalPages {
		globalPageID := s.hf.disk.GlobalPageID(s.hf.fileID, s.localPageNum)
		pg, ferr := s.hf.pool.FetchPage(globalPageID)
		if ferr != nil {
			return types.RID{}, nil, false, fmt.Errorf("scanner: failed to fetch page %d: %w", globalPageID, ferr)
		}

		pg.RLock()
		if pg.PageType != types.PageTypeHeapData {
			pg.RUnlock()
			s.hf.pool.UnpinPage(globalPageID, false)
			s.localPageNum++
			s.slotIdx = 0
			continue
		}

		slotCount := GetSlotCount(pg)
		for s.slotIdx < slotCount {
			idx := s.slotIdx
			s.slotIdx++
			if !IsSlotLive(pg, idx) {
				continue
			}
			rec, rerr := GetRecord(pg, idx)
			pg.RUnlock()
			s.hf.pool.UnpinPage(globalPageID, false)
			if rerr != nil {
				return types.RID{}, nil, false, rerr
			}
			return types.RID{PageNumber: uint32(s.localPageNum) + 1, SlotNumber: uint32(idx)}, rec, true, nil
		}

		pg.RUnlock()
		s.hf.pool.UnpinPage(globalPageID, false)
		s.localPageNum++
		s.slotIdx = 0
	}

	return types.RID{}, nil, false, nil
}

// ReadKey extracts a little-endian int32 key from rowData at attrOffset —
// the fixed-offset integer attribute the index is keyed on.
func ReadKey(rowData []byte, attrOffset int32) (int32, error) {
	off := int(attrOffset)
	if off < 0 || off+4 > len(rowData) {
		return 0, fmt.Errorf("key offset %d out of range for row of length %d", off, len(rowData))
	}
	return int32(binary.LittleEndian.Uint32(rowData[off:])), nil
}
