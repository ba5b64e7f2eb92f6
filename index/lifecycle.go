package index

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"bptreeidx/heapfile"
	"bptreeidx/types"
	"fmt"
	"os"
	"path/filepath"
)

// OpenOrCreate opens the index file "<relation>.<offset>" under baseDir, or
// creates and bulk-loads it from heapFileID through heap if it does not yet
// exist.
//
// fileID is the caller-assigned, stable-across-restarts file id this index
// is registered under with the disk manager — this module has no catalog
// to hand one out automatically, so the caller supplies it (the same way
// heapfile.Manager.Create/Load do for heap files).
func OpenOrCreate(
	relationName string,
	fileID uint32,
	pool *bufferpool.Pool,
	disk *diskmanager.Manager,
	attrOffset int32,
	keyType types.KeyType,
	baseDir string,
	heap *heapfile.Manager,
	heapFileID uint32,
) (*Tree, error) {
	indexFileName := fmt.Sprintf("%s.%d", relationName, attrOffset)
	indexPath := filepath.Join(baseDir, indexFileName)

	_, statErr := os.Stat(indexPath)
	exists := statErr == nil

	if !exists {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	if _, err := disk.OpenFileWithID(indexPath, fileID); err != nil {
		return nil, fmt.Errorf("OpenOrCreate: failed to open index file %s: %w", indexPath, err)
	}

	t := &Tree{
		fileID:       fileID,
		pool:         pool,
		disk:         disk,
		relationName: relationName,
		attrOffset:   attrOffset,
		keyType:      keyType,
	}

	if exists {
		return openExisting(t)
	}
	return createNew(t, heap, heapFileID)
}

func openExisting(t *Tree) (*Tree, error) {
	fd, err := t.disk.GetFileDescriptor(t.fileID)
	if err != nil {
		return nil, err
	}
	for local := int64(0); local < fd.NextPageID; local++ {
		if err := t.disk.RegisterPage(t.fileID, local); err != nil {
			return nil, err
		}
	}

	raw, err := t.disk.ReadMetadata(t.fileID)
	if err != nil {
		return nil, fmt.Errorf("OpenOrCreate: failed to read metadata: %w", err)
	}
	meta := decodeMetadata(raw[:metadataSize])

	if meta.relationName != t.relationName || meta.attrOffset != t.attrOffset || meta.keyType != t.keyType {
		return nil, fail(BadIndexInfo,
			"index metadata mismatch: file has relation=%q offset=%d type=%s, caller asked for relation=%q offset=%d type=%s",
			meta.relationName, meta.attrOffset, meta.keyType, t.relationName, t.attrOffset, t.keyType)
	}

	t.rootPageID = t.globalOf(meta.rootLocal)
	// Local page 1 is always the file's first-ever root — allocated right
	// after the metadata page on creation and never freed afterward, even
	// once it stops being the root. No need to persist it separately.
	t.initialRootPageID = t.globalOf(1)

	return t, nil
}

func createNew(t *Tree, heap *heapfile.Manager, heapFileID uint32) (*Tree, error) {
	// Reserve page 0 for metadata directly through the disk manager — the
	// metadata record is written straight to disk (see metadata.go /
	// diskmanager.WriteMetadata) and never cached, so it never needs a
	// buffer pool frame of its own.
	if _, err := t.disk.AllocatePage(t.fileID, types.PageTypeIndexMeta); err != nil {
		return nil, fmt.Errorf("failed to reserve metadata page: %w", err)
	}

	rootPageID, _, err := t.newLeaf()
	if err != nil {
		return nil, err
	}
	if err := t.pool.UnpinPage(rootPageID, true); err != nil {
		return nil, err
	}

	t.rootPageID = rootPageID
	t.initialRootPageID = rootPageID

	meta := metadata{
		relationName: t.relationName,
		attrOffset:   t.attrOffset,
		keyType:      t.keyType,
		rootLocal:    t.localOf(rootPageID),
	}
	if err := t.disk.WriteMetadata(t.fileID, encodeMetadata(meta)); err != nil {
		return nil, fmt.Errorf("failed to write index metadata: %w", err)
	}

	if heap != nil {
		scanner, err := heap.NewScanner(heapFileID)
		if err != nil {
			return nil, fmt.Errorf("failed to open relation scanner for bulk load: %w", err)
		}
		for {
			rid, rowData, ok, err := scanner.Next()
			if err != nil {
				return nil, fmt.Errorf("bulk load: %w", err)
			}
			if !ok {
				break
			}
			key, err := heapfile.ReadKey(rowData, t.attrOffset)
			if err != nil {
				return nil, fmt.Errorf("bulk load: %w", err)
			}
			if err := t.InsertEntry(key, rid); err != nil {
				return nil, fmt.Errorf("bulk load: %w", err)
			}
		}
	}

	if err := t.pool.FlushAllPages(); err != nil {
		return nil, fmt.Errorf("failed to flush newly created index: %w", err)
	}

	return t, nil
}

// Close ends any active scan, flushes the index file, and releases its
// file handle. A scan that was never started is not an error here — the
// caller is allowed to close an index it never queried.
func (t *Tree) Close() error {
	if err := t.EndScan(); err != nil && KindOf(err) != ScanNotInitialized {
		return err
	}

	if err := t.pool.FlushAllPages(); err != nil {
		return fmt.Errorf("Close: failed to flush pages: %w", err)
	}
	if err := t.disk.CloseFile(t.fileID); err != nil {
		return fmt.Errorf("Close: failed to close file: %w", err)
	}
	return nil
}
