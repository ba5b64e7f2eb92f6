package index

import "bptreeidx/types"

// InsertEntry adds (key, rid) to the tree, descending from the root and
// propagating any split all the way up, growing a new root if the split
// reaches the top.
func (t *Tree) InsertEntry(key int32, rid types.RID) error {
	promotedKey, promotedPageID, didSplit, err := t.insertRec(t.rootPageID, t.isOriginalRoot(t.rootPageID), key, rid)
	if err != nil {
		return err
	}
	if didSplit {
		return t.growRoot(promotedKey, promotedPageID)
	}
	return nil
}

// insertRec descends to the target leaf, inserts, and carries any split's
// copy-up/push-up entry back up through the recursion. Each frame pins its
// own page (plus the new sibling when it splits) and unpins them on every
// return path before returning — including the paths that propagate an
// error from a deeper frame.
func (t *Tree) insertRec(pageID int64, isLeaf bool, key int32, rid types.RID) (promotedKey int32, promotedPageID int64, didSplit bool, err error) {
	if isLeaf {
		return t.insertLeafEntry(pageID, key, rid)
	}

	view, unpin, err := t.fetchInternal(pageID)
	if err != nil {
		return 0, 0, false, err
	}

	childIdx := chooseChild(view, key)
	childPageID := t.globalOf(view.Child(childIdx))
	childIsLeaf := view.Level() == 1

	cKey, cPageID, cSplit, err := t.insertRec(childPageID, childIsLeaf, key, rid)
	if err != nil {
		unpin(false)
		return 0, 0, false, err
	}
	if !cSplit {
		unpin(false)
		return 0, 0, false, nil
	}

	rightChildLocal := t.localOf(cPageID)

	if !view.Full() {
		shiftInsertInternal(view, cKey, rightChildLocal)
		unpin(true)
		return 0, 0, false, nil
	}

	newPageID, newView, pushupKey, err := t.splitInternal(pageID, view, cKey)
	if err != nil {
		unpin(false)
		return 0, 0, false, err
	}

	// Equal keys go right: a pending key tying the new node's first key
	// lands in the new node, not the old one.
	if cKey >= newView.Key(0) {
		shiftInsertInternal(newView, cKey, rightChildLocal)
	} else {
		shiftInsertInternal(view, cKey, rightChildLocal)
	}

	unpin(true)
	t.pool.UnpinPage(newPageID, true)

	return pushupKey, newPageID, true, nil
}

// insertLeafEntry inserts (key, rid) into the leaf at pageID, splitting
// first if the leaf has no room.
func (t *Tree) insertLeafEntry(pageID int64, key int32, rid types.RID) (promotedKey int32, promotedPageID int64, didSplit bool, err error) {
	view, unpin, err := t.fetchLeaf(pageID)
	if err != nil {
		return 0, 0, false, err
	}

	if !view.Full() {
		shiftInsertLeaf(view, key, rid)
		unpin(true)
		return 0, 0, false, nil
	}

	m := (leafCapacity + 1) / 2 // ceil(L/2)
	splitBoundary := view.Key(m - 1)

	newPageID, newView, err := t.splitLeaf(pageID, view, m)
	if err != nil {
		unpin(false)
		return 0, 0, false, err
	}

	if key > splitBoundary {
		shiftInsertLeaf(newView, key, rid)
	} else {
		shiftInsertLeaf(view, key, rid)
	}

	newFirstKey := newView.Key(0)
	unpin(true)
	t.pool.UnpinPage(newPageID, true)

	return newFirstKey, newPageID, true, nil
}

// splitLeaf moves the upper half of a full leaf's entries into a freshly
// allocated leaf and relinks the sibling chain around it. It does not
// insert the pending entry — insertLeafEntry decides which half that goes
// into once both halves exist.
func (t *Tree) splitLeaf(oldPageID int64, oldView leafView, m int) (newPageID int64, newView leafView, err error) {
	newPageID, newView, err = t.newLeaf()
	if err != nil {
		return 0, leafView{}, err
	}

	n := leafCapacity - m
	for i := 0; i < n; i++ {
		newView.SetKey(i, oldView.Key(m+i))
		newView.SetRID(i, oldView.RID(m+i))
		oldView.ClearSlot(m + i)
	}

	newView.SetRightSibling(oldView.RightSibling())
	oldView.SetRightSibling(t.localOf(newPageID))

	return newPageID, newView, nil
}

// splitInternal moves the entries after the push-up point of a full
// internal node into a freshly allocated node, per the N-parity rule: for
// even N the push-up index depends on where pendingKey falls relative to
// the midpoint separator (equal goes right, toward index mid rather than
// mid-1); for odd N it is always the exact midpoint.
func (t *Tree) splitInternal(pageID int64, view internalView, pendingKey int32) (newPageID int64, newView internalView, pushupKey int32, err error) {
	n := internalCapacity
	mid := n / 2

	var pushupIndex int
	if n%2 == 0 {
		if pendingKey < view.Key(mid) {
			pushupIndex = mid - 1
		} else {
			pushupIndex = mid
		}
	} else {
		pushupIndex = mid
	}

	pushupKey = view.Key(pushupIndex)

	newPageID, newView, err = t.newInternal()
	if err != nil {
		return 0, internalView{}, 0, err
	}
	newView.SetLevel(view.Level())

	keyCount := n - 1 - pushupIndex
	childCount := n - pushupIndex

	for j := 0; j < keyCount; j++ {
		newView.SetKey(j, view.Key(pushupIndex+1+j))
	}
	for j := 0; j < childCount; j++ {
		newView.SetChild(j, view.Child(pushupIndex+1+j))
	}

	for i := pushupIndex; i < n; i++ {
		view.ClearKey(i)
	}
	for i := pushupIndex + 1; i <= n; i++ {
		view.ClearChild(i)
	}

	return newPageID, newView, pushupKey, nil
}

// growRoot allocates a new root over the old root and the page that just
// split off of it, and persists the new root id to the metadata page.
func (t *Tree) growRoot(promotedKey int32, promotedPageID int64) error {
	oldRootWasLeaf := t.isOriginalRoot(t.rootPageID)

	newRootPageID, newView, err := t.newInternal()
	if err != nil {
		return err
	}

	level := uint32(0)
	if oldRootWasLeaf {
		level = 1
	}
	newView.SetLevel(level)
	newView.SetChild(0, t.localOf(t.rootPageID))
	newView.SetKey(0, promotedKey)
	newView.SetChild(1, t.localOf(promotedPageID))

	if err := t.pool.UnpinPage(newRootPageID, true); err != nil {
		return err
	}

	meta := metadata{
		relationName: t.relationName,
		attrOffset:   t.attrOffset,
		keyType:      t.keyType,
		rootLocal:    t.localOf(newRootPageID),
	}
	if err := t.disk.WriteMetadata(t.fileID, encodeMetadata(meta)); err != nil {
		return err
	}

	t.rootPageID = newRootPageID
	return nil
}

// chooseChild picks the child of an internal node whose subtree should
// contain k: scanning from the right, the first separator strictly less
// than k wins; falling through to child 0 if none does.
func chooseChild(view internalView, k int32) int {
	used := view.Used()
	for i := used; i >= 1; i-- {
		if view.Key(i-1) < k && view.Child(i) != 0 {
			return i
		}
	}
	return 0
}

// shiftInsertLeaf inserts (key, rid) into view, shifting entries with a
// greater key one slot to the right. Equal keys are left in place, so ties
// land after any existing equal keys (stable).
func shiftInsertLeaf(view leafView, key int32, rid types.RID) {
	used := view.Used()
	pos := used
	for pos > 0 && view.Key(pos-1) > key {
		view.SetKey(pos, view.Key(pos-1))
		view.SetRID(pos, view.RID(pos-1))
		pos--
	}
	view.SetKey(pos, key)
	view.SetRID(pos, rid)
}

// shiftInsertInternal inserts separator key with its right child pointer
// into view, shifting the separator and its right child one slot over for
// every existing separator greater than key.
func shiftInsertInternal(view internalView, key int32, rightChildLocal uint32) {
	used := view.Used()
	pos := used
	for pos > 0 && view.Key(pos-1) > key {
		view.SetKey(pos, view.Key(pos-1))
		view.SetChild(pos+1, view.Child(pos))
		pos--
	}
	view.SetKey(pos, key)
	view.SetChild(pos+1, rightChildLocal)
}
