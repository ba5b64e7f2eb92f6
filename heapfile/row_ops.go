package heapfile

import (
	"bptreeidx/types"
	"fmt"
)

// InsertRow inserts a row into the heap file with the given id and returns
// the RID it was assigned.
func (m *Manager) InsertRow(fileID uint32, rowData []byte) (types.RID, error) {
	m.mu.RLock()
	hf, exists := m.files[fileID]
	m.mu.RUnlock()
	if !exists {
		return types.RID{}, fmt.Errorf("heap file %d not found", fileID)
	}

	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.insertRow(rowData)
}

// GetRow reads back the record addressed by rid.
func (m *Manager) GetRow(fileID uint32, rid types.RID) ([]byte, error) {
	m.mu.RLock()
	hf, exists := m.files[fileID]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("heap file %d not found", fileID)
	}

	hf.mu.RLock()
	defer hf.mu.RUnlock()
	return hf.getRow(rid)
}

// DeleteRow tombstones the record addressed by rid.
func (m *Manager) DeleteRow(fileID uint32, rid types.RID) error {
	m.mu.RLock()
	hf, exists := m.files[fileID]
	m.mu.RUnlock()
	if !exists {
		return fmt.Errorf("heap file %d not found", fileID)
	}

	hf.mu.Lock()
	defer hf.mu.Unlock()
	return hf.deleteRow(rid)
}

func (hf *File) insertRow(rowData []byte) (types.RID, error) {
	rowLen := uint16(len(rowData))
	maxRowSize := uint16(HeaderSize) // conservative floor; real ceiling is a fresh page's FreeSpace
	_ = maxRowSize
	if int(rowLen) > 4096-HeaderSize-SlotSize {
		return types.RID{}, fmt.Errorf("row too large: %d bytes", rowLen)
	}

	for {
		pg, localPageNum, err := hf.findSuitablePage(rowLen)
		if err != nil {
			return types.RID{}, fmt.Errorf("failed to find suitable page: %w", err)
		}

		pg.Lock()
		if FreeSpace(pg) < int(rowLen) {
			pg.Unlock()
			hf.pool.UnpinPage(pg.ID, false)
			continue
		}

		slotIndex, err := InsertRecord(pg, rowData)
		if err != nil {
			pg.Unlock()
			hf.pool.UnpinPage(pg.ID, false)
			return types.RID{}, fmt.Errorf("failed to insert record into page: %w", err)
		}
		pg.Unlock()
		hf.pool.UnpinPage(pg.ID, true)

		// RID page numbers are the local page number plus one —
		// RID.PageNumber==0 is the index's empty-slot sentinel, so local
		// data page 0 is numbered 1.
		return types.RID{PageNumber: localPageNum + 1, SlotNumber: uint32(slotIndex)}, nil
	}
}

func (hf *File) getRow(rid types.RID) ([]byte, error) {
	if rid.Empty() {
		return nil, fmt.Errorf("empty RID")
	}
	localPageNum := int64(rid.PageNumber - 1)
	globalPageID := hf.disk.GlobalPageID(hf.fileID, localPageNum)

	pg, err := hf.pool.FetchPage(globalPageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", globalPageID, err)
	}
	defer hf.pool.UnpinPage(pg.ID, false)

	pg.RLock()
	defer pg.RUnlock()
	return GetRecord(pg, uint16(rid.SlotNumber))
}

func (hf *File) deleteRow(rid types.RID) error {
	if rid.Empty() {
		return fmt.Errorf("empty RID")
	}
	localPageNum := int64(rid.PageNumber - 1)
	globalPageID := hf.disk.GlobalPageID(hf.fileID, localPageNum)

	pg, err := hf.pool.FetchPage(globalPageID)
	if err != nil {
		return fmt.Errorf("failed to fetch page %d: %w", globalPageID, err)
	}
	defer hf.pool.UnpinPage(pg.ID, true)

	pg.Lock()
	defer pg.Unlock()
	return DeleteRecord(pg, uint16(rid.SlotNumber))
}
