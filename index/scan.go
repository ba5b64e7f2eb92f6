package index

import "bptreeidx/types"

// scanState holds the one range scan a Tree can have open at a time: the
// bounds, the leaf currently being walked, and the next unread slot in it.
type scanState struct {
	executing bool
	lowOp     Operator
	highOp    Operator
	lowVal    int32
	highVal   int32

	leafPageID int64
	nextEntry  int
}

// StartScan opens a range scan over (lowVal lowOp key) && (key highOp
// highVal), ending whatever scan was already open first. lowOp must be GT
// or GTE and highOp must be LT or LTE; any other combination is rejected
// before touching the tree. StartScan walks the leaf sibling chain from the
// low bound looking for the first matching entry; if the tree holds entries
// but none of them satisfy the range, it fails with NoSuchKeyFound rather
// than opening a scan that would immediately report completion. An entirely
// empty tree is the one exception — that scan succeeds and the first
// ScanNext call reports completion instead.
func (t *Tree) StartScan(lowVal int32, lowOp Operator, highVal int32, highOp Operator) error {
	if lowOp != GT && lowOp != GTE {
		return fail(BadOpcodes, "low operator must be GT or GTE, got %d", lowOp)
	}
	if highOp != LT && highOp != LTE {
		return fail(BadOpcodes, "high operator must be LT or LTE, got %d", highOp)
	}
	if lowVal > highVal {
		return fail(BadScanrange, "low value %d exceeds high value %d", lowVal, highVal)
	}

	if t.scan.executing {
		if err := t.EndScan(); err != nil {
			return err
		}
	}

	leafPageID, err := t.descendToLeaf(lowVal)
	if err != nil {
		return err
	}

	matchLeafPageID, matchEntry, found, err := t.findFirstMatch(leafPageID, lowVal, lowOp, highVal, highOp)
	if err != nil {
		return err
	}

	if found {
		t.scan = scanState{
			executing:  true,
			lowOp:      lowOp,
			highOp:     highOp,
			lowVal:     lowVal,
			highVal:    highVal,
			leafPageID: matchLeafPageID,
			nextEntry:  matchEntry,
		}
		return nil
	}

	empty, err := t.isEmpty()
	if err != nil {
		return err
	}
	if empty {
		t.scan = scanState{
			executing:  true,
			lowOp:      lowOp,
			highOp:     highOp,
			lowVal:     lowVal,
			highVal:    highVal,
			leafPageID: t.rootPageID,
			nextEntry:  0,
		}
		return nil
	}

	return fail(NoSuchKeyFound, "no entry satisfies the requested range")
}

// findFirstMatch walks the leaf sibling chain starting at startLeafPageID
// looking for the first entry satisfying both bounds. Keys are ascending
// within and across leaves, so the first entry to fail the high bound means
// no later entry can match either — the search stops there.
func (t *Tree) findFirstMatch(startLeafPageID int64, lowVal int32, lowOp Operator, highVal int32, highOp Operator) (leafPageID int64, entryIndex int, found bool, err error) {
	curPageID := startLeafPageID
	for {
		view, unpin, ferr := t.fetchLeaf(curPageID)
		if ferr != nil {
			return 0, 0, false, ferr
		}

		used := view.Used()
		idx := locateLowerBound(view, lowVal, lowOp)

		for i := idx; i < used; i++ {
			key := view.Key(i)
			if !highOK(key, highVal, highOp) {
				unpin(false)
				return 0, 0, false, nil
			}
			unpin(false)
			return curPageID, i, true, nil
		}

		rightLocal := view.RightSibling()
		unpin(false)
		if rightLocal == 0 {
			return 0, 0, false, nil
		}
		curPageID = t.globalOf(rightLocal)
	}
}

// isEmpty reports whether the tree has never had an entry survive a split —
// true only while the root is still the original leaf and holds zero
// entries.
func (t *Tree) isEmpty() (bool, error) {
	if !t.isOriginalRoot(t.rootPageID) {
		return false, nil
	}
	view, unpin, err := t.fetchLeaf(t.rootPageID)
	if err != nil {
		return false, err
	}
	defer unpin(false)
	return view.Used() == 0, nil
}

// ScanNext returns the next matching RID, advancing across leaf siblings as
// needed, or an IndexScanCompleted error once the high bound is passed or
// the sibling chain runs out.
func (t *Tree) ScanNext() (types.RID, error) {
	if !t.scan.executing {
		return types.RID{}, fail(ScanNotInitialized, "no scan in progress")
	}

	for {
		view, unpin, err := t.fetchLeaf(t.scan.leafPageID)
		if err != nil {
			return types.RID{}, err
		}
		used := view.Used()

		if t.scan.nextEntry >= used {
			rightLocal := view.RightSibling()
			unpin(false)
			if rightLocal == 0 {
				return types.RID{}, fail(IndexScanCompleted, "scan reached end of index")
			}
			t.scan.leafPageID = t.globalOf(rightLocal)
			t.scan.nextEntry = 0
			continue
		}

		key := view.Key(t.scan.nextEntry)
		rid := view.RID(t.scan.nextEntry)
		unpin(false)

		// Keys are ascending and nextEntry was positioned at the first
		// entry clearing the low bound, so matches() only ever fails here
		// on the high bound, and it fails for every entry after.
		if !matches(key, t.scan.lowVal, t.scan.lowOp, t.scan.highVal, t.scan.highOp) {
			return types.RID{}, fail(IndexScanCompleted, "scan reached end of index")
		}

		t.scan.nextEntry++
		return rid, nil
	}
}

// EndScan closes the open scan. Ending a scan that was never started is an
// error, not a no-op, so callers can tell the two cases apart.
func (t *Tree) EndScan() error {
	if !t.scan.executing {
		return fail(ScanNotInitialized, "no scan in progress to end")
	}
	t.scan = scanState{}
	return nil
}

// Lookup is an equality convenience built directly on the scan machinery:
// a one-entry range scan that reports NoSuchKeyFound instead of
// IndexScanCompleted when nothing matches.
func (t *Tree) Lookup(key int32) (types.RID, error) {
	if err := t.StartScan(key, GTE, key, LTE); err != nil {
		return types.RID{}, err
	}

	rid, err := t.ScanNext()
	if err != nil {
		t.EndScan()
		if KindOf(err) == IndexScanCompleted {
			return types.RID{}, fail(NoSuchKeyFound, "no entry found for key %d", key)
		}
		return types.RID{}, err
	}

	if err := t.EndScan(); err != nil {
		return types.RID{}, err
	}
	return rid, nil
}

// descendToLeaf walks from the root to the leaf whose range would contain
// key, using the same right-to-left separator scan InsertEntry uses to
// descend.
func (t *Tree) descendToLeaf(key int32) (int64, error) {
	pageID := t.rootPageID
	isLeaf := t.isOriginalRoot(t.rootPageID)

	for !isLeaf {
		view, unpin, err := t.fetchInternal(pageID)
		if err != nil {
			return 0, err
		}
		childIdx := chooseChild(view, key)
		childPageID := t.globalOf(view.Child(childIdx))
		childIsLeaf := view.Level() == 1
		unpin(false)

		pageID = childPageID
		isLeaf = childIsLeaf
	}

	return pageID, nil
}

// locateLowerBound returns the index of the first occupied slot in view
// whose key clears the low bound, or view.Used() if none does.
func locateLowerBound(view leafView, lowVal int32, lowOp Operator) int {
	used := view.Used()
	for i := 0; i < used; i++ {
		if lowOK(view.Key(i), lowVal, lowOp) {
			return i
		}
	}
	return used
}

func lowOK(key, lowVal int32, lowOp Operator) bool {
	if lowOp == GT {
		return key > lowVal
	}
	return key >= lowVal
}

func highOK(key, highVal int32, highOp Operator) bool {
	if highOp == LT {
		return key < highVal
	}
	return key <= highVal
}

func matches(key, lowVal int32, lowOp Operator, highVal int32, highOp Operator) bool {
	return lowOK(key, lowVal, lowOp) && highOK(key, highVal, highOp)
}
