package heapfile

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"bptreeidx/types"
	"fmt"
	"os"
	"path/filepath"
)

// NewManager creates a heap file manager rooted at baseDir.
func NewManager(baseDir string, disk *diskmanager.Manager, pool *bufferpool.Pool) *Manager {
	return &Manager{
		baseDir: baseDir,
		files:   make(map[uint32]*File),
		byName:  make(map[string]uint32),
		disk:    disk,
		pool:    pool,
	}
}

// Create makes a new heap file for a relation: opens the OS file through
// the disk manager, allocates its first page through the buffer pool, and
// initializes that page's header.
func (m *Manager) Create(relationName string, fileID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[relationName]; exists {
		return fmt.Errorf("heap file for relation %q already open", relationName)
	}

	heapPath := filepath.Join(m.baseDir, fmt.Sprintf("%d.heap", fileID))
	if _, err := os.Stat(heapPath); err == nil {
		return fmt.Errorf("heap file %d already exists", fileID)
	}
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create heap directory: %w", err)
	}

	if _, err := m.disk.OpenFileWithID(heapPath, fileID); err != nil {
		return fmt.Errorf("failed to create heap file: %w", err)
	}

	pg, err := m.pool.NewPage(fileID, types.PageTypeHeapData)
	if err != nil {
		_ = m.disk.CloseFile(fileID)
		return fmt.Errorf("buffer pool failed to allocate first page: %w", err)
	}
	InitPage(pg)

	if err := m.pool.UnpinPage(pg.ID, true); err != nil {
		_ = m.disk.CloseFile(fileID)
		return fmt.Errorf("failed to unpin first heap page: %w", err)
	}

	hf := &File{
		fileID:   fileID,
		name:     relationName,
		filePath: heapPath,
		disk:     m.disk,
		pool:     m.pool,
	}
	m.files[fileID] = hf
	m.byName[relationName] = fileID

	return nil
}

// Load reopens an existing heap file and registers its pages with the disk
// manager so the buffer pool can address them.
func (m *Manager) Load(fileID uint32, relationName string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hf, exists := m.files[fileID]; exists {
		return hf, nil
	}

	heapPath := filepath.Join(m.baseDir, fmt.Sprintf("%d.heap", fileID))
	if _, err := os.Stat(heapPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("heap file %d not found on disk", fileID)
	}

	if _, err := m.disk.OpenFileWithID(heapPath, fileID); err != nil {
		return nil, fmt.Errorf("failed to open heap file: %w", err)
	}

	fd, err := m.disk.GetFileDescriptor(fileID)
	if err != nil {
		return nil, err
	}
	for localPage := int64(0); localPage < fd.NextPageID; localPage++ {
		if err := m.disk.RegisterPage(fileID, localPage); err != nil {
			return nil, fmt.Errorf("failed to register page %d: %w", localPage, err)
		}
	}

	hf := &File{
		fileID:   fileID,
		name:     relationName,
		filePath: heapPath,
		disk:     m.disk,
		pool:     m.pool,
	}
	m.files[fileID] = hf
	m.byName[relationName] = fileID

	return hf, nil
}
