package heapfile

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"fmt"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	disk := diskmanager.New()
	pool := bufferpool.New(16, disk)
	return NewManager(dir, disk, pool)
}

func TestInsertAndGetRowRoundTrip(t *testing.T) {
	m := newTestManager(t)
	if err := m.Create("students", 1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rows := [][]byte{
		[]byte("Alice|20"),
		[]byte("Bob|21"),
		[]byte("Charlie|22"),
	}

	for _, row := range rows {
		rid, err := m.InsertRow(1, row)
		if err != nil {
			t.Fatalf("InsertRow failed: %v", err)
		}
		if rid.Empty() {
			t.Fatalf("InsertRow returned the empty-slot sentinel RID")
		}

		got, err := m.GetRow(1, rid)
		if err != nil {
			t.Fatalf("GetRow failed: %v", err)
		}
		if string(got) != string(row) {
			t.Errorf("GetRow = %q, want %q", got, row)
		}
	}
}

func TestDeleteRowTombstones(t *testing.T) {
	m := newTestManager(t)
	if err := m.Create("t", 1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rid, err := m.InsertRow(1, []byte("to-delete"))
	if err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	if err := m.DeleteRow(1, rid); err != nil {
		t.Fatalf("DeleteRow failed: %v", err)
	}
	if _, err := m.GetRow(1, rid); err == nil {
		t.Errorf("GetRow on a deleted slot should fail")
	}
}

func TestInsertSpillsAcrossPages(t *testing.T) {
	m := newTestManager(t)
	if err := m.Create("big", 1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	pages := map[uint32]bool{}
	for i := 0; i < 400; i++ {
		rid, err := m.InsertRow(1, []byte(fmt.Sprintf("row-%04d-filler-bytes", i)))
		if err != nil {
			t.Fatalf("InsertRow %d failed: %v", i, err)
		}
		pages[rid.PageNumber] = true
	}

	if len(pages) < 2 {
		t.Errorf("expected inserts to spill across multiple pages, got %d page(s)", len(pages))
	}
}

func TestRIDPageNumberNeverZero(t *testing.T) {
	m := newTestManager(t)
	if err := m.Create("t", 1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rid, err := m.InsertRow(1, []byte("first row"))
	if err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	if rid.PageNumber == 0 {
		t.Errorf("RID.PageNumber must never be 0 on a real row, that value is the empty-slot sentinel")
	}
}

func TestScannerVisitsEveryLiveRowInOrder(t *testing.T) {
	m := newTestManager(t)
	if err := m.Create("scan_me", 1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := make([][]byte, 0, 10)
	for i := 0; i < 10; i++ {
		row := []byte(fmt.Sprintf("payload-%02d", i))
		if _, err := m.InsertRow(1, row); err != nil {
			t.Fatalf("InsertRow failed: %v", err)
		}
		want = append(want, row)
	}

	scanner, err := m.NewScanner(1)
	if err != nil {
		t.Fatalf("NewScanner failed: %v", err)
	}

	var got [][]byte
	for {
		_, data, ok, err := scanner.Next()
		if err != nil {
			t.Fatalf("Scanner.Next failed: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, data)
	}

	if len(got) != len(want) {
		t.Fatalf("scanner visited %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadKeyExtractsLittleEndianInt32(t *testing.T) {
	row := make([]byte, 12)
	row[4], row[5], row[6], row[7] = 42, 0, 0, 0
	key, err := ReadKey(row, 4)
	if err != nil {
		t.Fatalf("ReadKey failed: %v", err)
	}
	if key != 42 {
		t.Errorf("ReadKey = %d, want 42", key)
	}

	if _, err := ReadKey(row, 20); err == nil {
		t.Errorf("ReadKey with an out-of-range offset should fail")
	}
}

func TestLoadReopensExistingHeapFile(t *testing.T) {
	dir := t.TempDir()
	disk := diskmanager.New()
	pool := bufferpool.New(16, disk)
	m1 := NewManager(dir, disk, pool)

	if err := m1.Create("persisted", 1); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	rid, err := m1.InsertRow(1, []byte("durable row"))
	if err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	if err := pool.FlushAllPages(); err != nil {
		t.Fatalf("FlushAllPages failed: %v", err)
	}
	if err := disk.CloseFile(1); err != nil {
		t.Fatalf("CloseFile failed: %v", err)
	}

	disk2 := diskmanager.New()
	pool2 := bufferpool.New(16, disk2)
	m2 := NewManager(dir, disk2, pool2)

	if _, err := m2.Load(1, "persisted"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := m2.GetRow(1, rid)
	if err != nil {
		t.Fatalf("GetRow after reload failed: %v", err)
	}
	if string(got) != "durable row" {
		t.Errorf("GetRow after reload = %q, want %q", got, "durable row")
	}
}
