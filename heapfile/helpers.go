package heapfile

import (
	"bptreeidx/page"
	"bptreeidx/types"
	"fmt"
)

func (m *Manager) ByName(relationName string) (*File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fileID, exists := m.byName[relationName]
	if !exists {
		return nil, fmt.Errorf("no heap file open for relation %q", relationName)
	}
	hf, exists := m.files[fileID]
	if !exists {
		return nil, fmt.Errorf("heap file index inconsistency for relation %q", relationName)
	}
	return hf, nil
}

func (m *Manager) ByID(fileID uint32) (*File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hf, exists := m.files[fileID]
	if !exists {
		return nil, fmt.Errorf("heap file %d not found", fileID)
	}
	return hf, nil
}

// findSuitablePage returns a page with at least requiredSpace bytes free,
// scanning existing pages first and allocating a new one if none fit.
func (hf *File) findSuitablePage(requiredSpace uint16) (*page.Page, uint32, error) {
	requiredWithSlot := int(requiredSpace) + SlotSize

	fd, err := hf.disk.GetFileDescriptor(hf.fileID)
	if err != nil {
		return nil, 0, err
	}

	for localPageNum := int64(0); localPageNum < fd.NextPageID; localPageNum++ {
		globalPageID := hf.disk.GlobalPageID(hf.fileID, localPageNum)

		pg, err := hf.pool.FetchPage(globalPageID)
		if err != nil {
			continue
		}
		if FreeSpace(pg) >= requiredWithSlot {
			return pg, uint32(localPageNum), nil
		}
		hf.pool.UnpinPage(globalPageID, false)
	}

	pg, err := hf.pool.NewPage(hf.fileID, types.PageTypeHeapData)
	if err != nil {
		return nil, 0, err
	}
	InitPage(pg)

	fd, err = hf.disk.GetFileDescriptor(hf.fileID)
	if err != nil {
		hf.pool.UnpinPage(pg.ID, false)
		return nil, 0, err
	}

	localPageNum := uint32(fd.NextPageID - 1)
	SetPageNo(pg, localPageNum)
	if err := hf.disk.RegisterPage(hf.fileID, int64(localPageNum)); err != nil {
		hf.pool.UnpinPage(pg.ID, false)
		return nil, 0, fmt.Errorf("failed to register new page: %w", err)
	}

	return pg, localPageNum, nil
}

// Flush writes every dirty page belonging to this heap file's buffer pool.
func (hf *File) Flush() error {
	return hf.pool.FlushAllPages()
}

func (hf *File) FileID() uint32 {
	return hf.fileID
}
