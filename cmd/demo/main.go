// demo seeds a heap file with a handful of rows, builds a secondary index
// over one of its integer columns, and runs a couple of range queries
// against it, printing the RIDs each one returns.
//
// Run: go run ./cmd/demo
package main

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"bptreeidx/heapfile"
	"bptreeidx/index"
	"bptreeidx/types"
	"encoding/binary"
	"fmt"
	"log"
	"os"
)

const (
	baseDir        = "databases/demo"
	relationName   = "employees"
	heapFileID     = 1
	indexFileID    = 2
	ageAttrOffset  = 0 // employee age is the first 4 bytes of the row
)

type employee struct {
	age  int32
	name string
}

func main() {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}

	disk := diskmanager.New()
	pool := bufferpool.New(32, disk)
	heap := heapfile.NewManager(baseDir, disk, pool)
	defer pool.Close()
	// idx.Close() and the heap file's own handle both go through disk;
	// CloseAll catches whichever of the two didn't already close itself.
	defer disk.CloseAll()

	fmt.Println("Creating heap file for relation", relationName)
	if err := heap.Create(relationName, heapFileID); err != nil {
		log.Fatalf("create heap file: %v", err)
	}

	roster := []employee{
		{34, "Alice"}, {22, "Bob"}, {45, "Carol"}, {29, "Diana"},
		{51, "Eve"}, {22, "Frank"}, {38, "Grace"}, {41, "Henry"},
	}

	fmt.Println("\n--- Inserting rows ---")
	for _, emp := range roster {
		row := encodeEmployee(emp)
		rid, err := heap.InsertRow(heapFileID, row)
		if err != nil {
			log.Fatalf("insert %s: %v", emp.name, err)
		}
		fmt.Printf("  %-6s age=%-3d -> RID{page=%d, slot=%d}\n", emp.name, emp.age, rid.PageNumber, rid.SlotNumber)
	}

	fmt.Println("\nBuilding index over age (bulk-loaded from the heap file)...")
	idx, err := index.OpenOrCreate(relationName, indexFileID, pool, disk, ageAttrOffset, types.KeyTypeInteger, baseDir, heap, heapFileID)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	runQuery(idx, heap, "age in [30, 45]", 30, index.GTE, 45, index.LTE)
	runQuery(idx, heap, "age > 40", 40, index.GT, 1<<30, index.LTE)
	runQuery(idx, heap, "age == 22", 22, index.GTE, 22, index.LTE)
}

func runQuery(idx *index.Tree, heap *heapfile.Manager, label string, low int32, lowOp index.Operator, high int32, highOp index.Operator) {
	fmt.Printf("\n--- Query: %s ---\n", label)
	if err := idx.StartScan(low, lowOp, high, highOp); err != nil {
		log.Fatalf("start scan: %v", err)
	}
	defer idx.EndScan()

	for {
		rid, err := idx.ScanNext()
		if err != nil {
			if index.KindOf(err) == index.IndexScanCompleted {
				break
			}
			log.Fatalf("scan next: %v", err)
		}
		row, err := heap.GetRow(heapFileID, rid)
		if err != nil {
			log.Fatalf("get row %+v: %v", rid, err)
		}
		emp := decodeEmployee(row)
		fmt.Printf("  RID{page=%d, slot=%d} -> age=%d name=%s\n", rid.PageNumber, rid.SlotNumber, emp.age, emp.name)
	}
}

func encodeEmployee(e employee) []byte {
	row := make([]byte, 4+len(e.name))
	binary.LittleEndian.PutUint32(row[0:], uint32(e.age))
	copy(row[4:], e.name)
	return row
}

func decodeEmployee(row []byte) employee {
	return employee{
		age:  int32(binary.LittleEndian.Uint32(row[0:])),
		name: string(row[4:]),
	}
}
