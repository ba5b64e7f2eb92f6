package index

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"bptreeidx/heapfile"
	"bptreeidx/types"
	"math/rand"
	"testing"
)

func newTestTree(t *testing.T, relation string, fileID uint32) *Tree {
	t.Helper()
	dir := t.TempDir()
	disk := diskmanager.New()
	pool := bufferpool.New(32, disk)

	tree, err := OpenOrCreate(relation, fileID, pool, disk, 0, types.KeyTypeInteger, dir, nil, 0)
	if err != nil {
		t.Fatalf("OpenOrCreate failed: %v", err)
	}
	t.Cleanup(func() {
		tree.Close()
	})
	return tree
}

func collectScan(t *testing.T, tree *Tree, low int32, lowOp Operator, high int32, highOp Operator) []types.RID {
	t.Helper()
	if err := tree.StartScan(low, lowOp, high, highOp); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	var out []types.RID
	for {
		rid, err := tree.ScanNext()
		if err != nil {
			if KindOf(err) == IndexScanCompleted {
				break
			}
			t.Fatalf("ScanNext failed: %v", err)
		}
		out = append(out, rid)
	}
	if err := tree.EndScan(); err != nil {
		t.Fatalf("EndScan failed: %v", err)
	}
	return out
}

func TestCapacitiesAccountForHeader(t *testing.T) {
	// The page-type stamp byte the disk manager writes lives at offset 8;
	// reserving a 9-byte header for it means L comes out one short (340, not
	// 341) and N two short (509, not 511) of a header-less layout.
	if LeafCapacity()*(4+types.RIDSize)+4 > 4096-headerSize {
		t.Errorf("leaf capacity %d overruns the page", LeafCapacity())
	}
	if InternalCapacity() <= 0 {
		t.Fatalf("internal capacity must be positive, got %d", InternalCapacity())
	}
}

func TestStartScanRejectsBadOperators(t *testing.T) {
	tree := newTestTree(t, "rel", 1)

	if err := tree.StartScan(0, LT, 10, LTE); KindOf(err) != BadOpcodes {
		t.Errorf("expected BadOpcodes for a bad low operator, got %v", err)
	}
	if err := tree.StartScan(0, GTE, 10, GTE); KindOf(err) != BadOpcodes {
		t.Errorf("expected BadOpcodes for a bad high operator, got %v", err)
	}
}

func TestStartScanRejectsInvertedRange(t *testing.T) {
	tree := newTestTree(t, "rel", 1)
	if err := tree.StartScan(10, GTE, 0, LTE); KindOf(err) != BadScanrange {
		t.Errorf("expected BadScanrange for an inverted range, got %v", err)
	}
}

func TestEmptyTreeScanCompletesImmediately(t *testing.T) {
	tree := newTestTree(t, "rel", 1)
	if err := tree.StartScan(0, GTE, 1000, LTE); err != nil {
		t.Fatalf("StartScan on an empty tree should succeed, got %v", err)
	}
	if _, err := tree.ScanNext(); KindOf(err) != IndexScanCompleted {
		t.Errorf("expected IndexScanCompleted on an empty tree, got %v", err)
	}
}

func TestEndScanWithoutStartIsScanNotInitialized(t *testing.T) {
	tree := newTestTree(t, "rel", 1)
	if err := tree.EndScan(); KindOf(err) != ScanNotInitialized {
		t.Errorf("expected ScanNotInitialized, got %v", err)
	}
	if _, err := tree.ScanNext(); KindOf(err) != ScanNotInitialized {
		t.Errorf("expected ScanNotInitialized from ScanNext, got %v", err)
	}
}

func TestInsertAndScanSmallSet(t *testing.T) {
	tree := newTestTree(t, "rel", 1)

	keys := []int32{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	for _, k := range keys {
		rid := types.RID{PageNumber: uint32(k) + 1, SlotNumber: 0}
		if err := tree.InsertEntry(k, rid); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", k, err)
		}
	}

	got := collectScan(t, tree, 0, GTE, 9, LTE)
	if len(got) != len(keys) {
		t.Fatalf("scan returned %d entries, want %d", len(got), len(keys))
	}
	for i, rid := range got {
		if rid.PageNumber != uint32(i)+1 {
			t.Errorf("entry %d: PageNumber = %d, want %d (scan order should be ascending key order)", i, rid.PageNumber, i+1)
		}
	}
}

func TestScanOperatorBoundsAreExclusiveInclusiveAsRequested(t *testing.T) {
	tree := newTestTree(t, "rel", 1)
	for k := int32(0); k < 10; k++ {
		if err := tree.InsertEntry(k, types.RID{PageNumber: uint32(k) + 1}); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", k, err)
		}
	}

	cases := []struct {
		name           string
		low            int32
		lowOp          Operator
		high           int32
		highOp         Operator
		wantFirst      int32
		wantLast       int32
		wantCount      int
	}{
		{"GT-LT", 2, GT, 7, LT, 3, 6, 4},
		{"GTE-LTE", 2, GTE, 7, LTE, 2, 7, 6},
		{"GT-LTE", 2, GT, 7, LTE, 3, 7, 5},
		{"GTE-LT", 2, GTE, 7, LT, 2, 6, 5},
	}

	for _, c := range cases {
		got := collectScan(t, tree, c.low, c.lowOp, c.high, c.highOp)
		if len(got) != c.wantCount {
			t.Errorf("%s: got %d entries, want %d", c.name, len(got), c.wantCount)
			continue
		}
		if first := int32(got[0].PageNumber) - 1; first != c.wantFirst {
			t.Errorf("%s: first key = %d, want %d", c.name, first, c.wantFirst)
		}
		if last := int32(got[len(got)-1].PageNumber) - 1; last != c.wantLast {
			t.Errorf("%s: last key = %d, want %d", c.name, last, c.wantLast)
		}
	}
}

func TestLookupFindsExactKeyAndRejectsMissing(t *testing.T) {
	tree := newTestTree(t, "rel", 1)
	for k := int32(0); k < 20; k++ {
		if err := tree.InsertEntry(k*2, types.RID{PageNumber: uint32(k) + 1}); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
	}

	rid, err := tree.Lookup(10)
	if err != nil {
		t.Fatalf("Lookup(10) failed: %v", err)
	}
	if rid.PageNumber != 6 {
		t.Errorf("Lookup(10) = %+v, want PageNumber 6", rid)
	}

	if _, err := tree.Lookup(11); KindOf(err) != NoSuchKeyFound {
		t.Errorf("Lookup(11) expected NoSuchKeyFound, got %v", err)
	}
}

// TestInsertionForcesLeafSplits drives enough insertions through the tree
// to force many leaf splits and at least one root growth from leaf to
// internal, then verifies every key is still reachable in order. At this
// scale the root internal node never overflows (6000 keys fit comfortably
// under one level of leaves), so this only exercises splitLeaf and the
// leaf-to-internal growRoot path — see TestDeepInsertionForcesGenuineInternalSplit
// for the root-internal-overflow case.
func TestInsertionForcesLeafSplits(t *testing.T) {
	tree := newTestTree(t, "rel", 1)

	const n = 6000 // several multiples of LeafCapacity(), well under InternalCapacity()*LeafCapacity()
	for k := int32(0); k < n; k++ {
		if err := tree.InsertEntry(k, types.RID{PageNumber: uint32(k) + 1}); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", k, err)
		}
	}

	got := collectScan(t, tree, 0, GTE, n-1, LTE)
	if len(got) != int(n) {
		t.Fatalf("scan returned %d entries, want %d", len(got), n)
	}
	for i, rid := range got {
		if rid.PageNumber != uint32(i)+1 {
			t.Fatalf("entry %d out of order: PageNumber = %d, want %d", i, rid.PageNumber, i+1)
		}
	}
}

// TestDeepInsertionForcesGenuineInternalSplit inserts enough sequential keys
// that the root internal node itself overflows past InternalCapacity()
// separators, forcing splitInternal and growRoot's internal-to-internal
// path. With every leaf but the rightmost frozen at its minimum post-split
// occupancy (m = (LeafCapacity()+1)/2), clearing InternalCapacity()+1
// leaves takes at least (InternalCapacity()+1)*m keys in the worst case;
// this test inserts well past that floor.
func TestDeepInsertionForcesGenuineInternalSplit(t *testing.T) {
	tree := newTestTree(t, "rel", 1)

	const n = 150000
	for k := int32(0); k < n; k++ {
		if err := tree.InsertEntry(k, types.RID{PageNumber: uint32(k) + 1}); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", k, err)
		}
	}

	got := collectScan(t, tree, 0, GTE, n-1, LTE)
	if len(got) != n {
		t.Fatalf("scan returned %d entries, want %d", len(got), n)
	}
	for i, rid := range got {
		if rid.PageNumber != uint32(i)+1 {
			t.Fatalf("entry %d out of order: PageNumber = %d, want %d", i, rid.PageNumber, i+1)
		}
	}
}

// TestInternalSplitTieBreakRoutesEqualKeyToNewNode exercises the decision
// insertRec makes right after splitInternal returns: a pending separator
// key that exactly ties the new node's first key must be routed into the
// new node, never the old one. This is deterministic and independent of
// InternalCapacity()'s parity, unlike splitInternal's own even-N midpoint
// adjustment, so it is tested directly here with a hand-built full node
// rather than waiting for one to emerge from bulk insertion.
func TestInternalSplitTieBreakRoutesEqualKeyToNewNode(t *testing.T) {
	tree := newTestTree(t, "rel", 1)

	pageID, view, err := tree.newInternal()
	if err != nil {
		t.Fatalf("newInternal failed: %v", err)
	}

	n := InternalCapacity()
	view.SetLevel(1)
	view.SetChild(0, 9999)
	for i := 0; i < n; i++ {
		view.SetKey(i, int32(i*2))
		view.SetChild(i+1, uint32(i+1))
	}
	if !view.Full() {
		t.Fatalf("constructed internal node should report Full()")
	}

	mid := n / 2
	newFirstKey := int32(mid+1) * 2
	pendingKey := newFirstKey // ties the new node's first key exactly

	newPageID, newView, pushupKey, err := tree.splitInternal(pageID, view, pendingKey)
	if err != nil {
		t.Fatalf("splitInternal failed: %v", err)
	}
	if pushupKey != int32(mid)*2 {
		t.Fatalf("pushupKey = %d, want %d", pushupKey, mid*2)
	}
	if newView.Key(0) != newFirstKey {
		t.Fatalf("newView.Key(0) = %d, want %d", newView.Key(0), newFirstKey)
	}
	if pendingKey < newView.Key(0) {
		t.Fatalf("pendingKey %d should tie newView.Key(0) %d, not fall below it", pendingKey, newView.Key(0))
	}

	// insertRec's redirect: pendingKey >= newView.Key(0), so the pending
	// separator goes into the new node.
	shiftInsertInternal(newView, pendingKey, 12345)
	if newView.Key(0) != newFirstKey {
		t.Errorf("existing first key should be undisturbed, got %d, want %d", newView.Key(0), newFirstKey)
	}
	if newView.Key(1) != pendingKey {
		t.Errorf("tied key should land right after the existing equal key, got Key(1)=%d, want %d", newView.Key(1), pendingKey)
	}
	if newView.Child(2) != 12345 {
		t.Errorf("tied key's right child pointer should land at index 2, got %d", newView.Child(2))
	}

	for i := 0; i < view.Used(); i++ {
		if view.Key(i) == pendingKey {
			t.Errorf("old node should not retain the tied-and-redirected key %d", pendingKey)
		}
	}

	if err := tree.pool.UnpinPage(pageID, true); err != nil {
		t.Fatalf("unpin old page failed: %v", err)
	}
	if err := tree.pool.UnpinPage(newPageID, true); err != nil {
		t.Fatalf("unpin new page failed: %v", err)
	}
}

// TestLoadOrderDoesNotAffectFinalScanOrder inserts the same key set in
// forward, reverse, and random order into three independent trees and
// checks all three produce the identical ascending sequence.
func TestLoadOrderDoesNotAffectFinalScanOrder(t *testing.T) {
	const n = 5000

	forward := make([]int32, n)
	for i := range forward {
		forward[i] = int32(i)
	}
	reverse := make([]int32, n)
	for i := range reverse {
		reverse[i] = forward[n-1-i]
	}
	shuffled := append([]int32{}, forward...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	orders := map[string][]int32{
		"forward":  forward,
		"reverse":  reverse,
		"shuffled": shuffled,
	}

	var results [][]types.RID
	for name, order := range orders {
		tree := newTestTree(t, "rel_"+name, 1)
		for _, k := range order {
			if err := tree.InsertEntry(k, types.RID{PageNumber: uint32(k) + 1}); err != nil {
				t.Fatalf("%s: InsertEntry(%d) failed: %v", name, k, err)
			}
		}
		results = append(results, collectScan(t, tree, 0, GTE, n-1, LTE))
	}

	for i := 1; i < len(results); i++ {
		if len(results[i]) != len(results[0]) {
			t.Fatalf("order %d produced %d entries, order 0 produced %d", i, len(results[i]), len(results[0]))
		}
		for j := range results[0] {
			if results[i][j] != results[0][j] {
				t.Fatalf("order %d diverges from order 0 at position %d: %+v != %+v", i, j, results[i][j], results[0][j])
			}
		}
	}
}

func TestDuplicateKeysAllScanTogether(t *testing.T) {
	tree := newTestTree(t, "rel", 1)

	for i := int32(0); i < 5; i++ {
		if err := tree.InsertEntry(42, types.RID{PageNumber: uint32(i) + 1, SlotNumber: uint32(i)}); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
	}
	if err := tree.InsertEntry(10, types.RID{PageNumber: 100}); err != nil {
		t.Fatalf("InsertEntry failed: %v", err)
	}
	if err := tree.InsertEntry(50, types.RID{PageNumber: 200}); err != nil {
		t.Fatalf("InsertEntry failed: %v", err)
	}

	got := collectScan(t, tree, 42, GTE, 42, LTE)
	if len(got) != 5 {
		t.Fatalf("expected 5 duplicate entries for key 42, got %d", len(got))
	}
}

func TestBulkLoadFromExistingHeapFile(t *testing.T) {
	dir := t.TempDir()
	disk := diskmanager.New()
	pool := bufferpool.New(32, disk)
	heap := heapfile.NewManager(dir, disk, pool)

	if err := heap.Create("people", 1); err != nil {
		t.Fatalf("heap.Create failed: %v", err)
	}

	const rowCount = 50
	for i := int32(0); i < rowCount; i++ {
		row := make([]byte, 8)
		row[0] = byte(i)
		row[1] = byte(i >> 8)
		row[2] = byte(i >> 16)
		row[3] = byte(i >> 24)
		if _, err := heap.InsertRow(1, row); err != nil {
			t.Fatalf("InsertRow failed: %v", err)
		}
	}

	tree, err := OpenOrCreate("people", 2, pool, disk, 0, types.KeyTypeInteger, dir, heap, 1)
	if err != nil {
		t.Fatalf("OpenOrCreate with bulk load failed: %v", err)
	}
	defer tree.Close()

	got := collectScan(t, tree, 0, GTE, rowCount-1, LTE)
	if len(got) != rowCount {
		t.Fatalf("bulk-loaded index scan returned %d entries, want %d", len(got), rowCount)
	}
}

func TestReopenAfterCloseRejectsMismatchedSchema(t *testing.T) {
	dir := t.TempDir()
	disk := diskmanager.New()
	pool := bufferpool.New(32, disk)

	tree, err := OpenOrCreate("rel", 1, pool, disk, 4, types.KeyTypeInteger, dir, nil, 0)
	if err != nil {
		t.Fatalf("OpenOrCreate failed: %v", err)
	}
	if err := tree.InsertEntry(1, types.RID{PageNumber: 1}); err != nil {
		t.Fatalf("InsertEntry failed: %v", err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := OpenOrCreate("rel", 1, pool, disk, 4, types.KeyTypeDouble, dir, nil, 0); KindOf(err) != BadIndexInfo {
		t.Errorf("reopening with a different key type should fail with BadIndexInfo, got %v", err)
	}
}

func TestReopenPreservesInsertedEntries(t *testing.T) {
	dir := t.TempDir()
	disk := diskmanager.New()
	pool := bufferpool.New(32, disk)

	tree, err := OpenOrCreate("rel", 1, pool, disk, 0, types.KeyTypeInteger, dir, nil, 0)
	if err != nil {
		t.Fatalf("OpenOrCreate failed: %v", err)
	}
	for k := int32(0); k < 500; k++ {
		if err := tree.InsertEntry(k, types.RID{PageNumber: uint32(k) + 1}); err != nil {
			t.Fatalf("InsertEntry(%d) failed: %v", k, err)
		}
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenOrCreate("rel", 1, pool, disk, 0, types.KeyTypeInteger, dir, nil, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got := collectScan(t, reopened, 0, GTE, 499, LTE)
	if len(got) != 500 {
		t.Fatalf("reopened tree scan returned %d entries, want 500", len(got))
	}
}
