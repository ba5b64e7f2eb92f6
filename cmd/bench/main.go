// bench inserts a configurable number of keys into a fresh index, runs the
// boundary-scenario range scans against it, times each one, and renders a
// latency bar chart.
//
// Run: go run ./cmd/bench [numKeys]
package main

import (
	"bptreeidx/bufferpool"
	"bptreeidx/diskmanager"
	"bptreeidx/index"
	"bptreeidx/types"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// result mirrors the shape a benchmark harness in this corpus would record:
// a named operation and the latency it took, nothing fancier.
type result struct {
	operation string
	latency   time.Duration
}

type scenario struct {
	name    string
	low     int32
	lowOp   index.Operator
	high    int32
	highOp  index.Operator
}

func main() {
	numKeys := 50000
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil {
			numKeys = n
		}
	}

	dir, err := os.MkdirTemp("", "idxbench")
	if err != nil {
		log.Fatalf("mkdir temp: %v", err)
	}
	defer os.RemoveAll(dir)

	disk := diskmanager.New()
	pool := bufferpool.New(256, disk)

	tree, err := index.OpenOrCreate("bench_relation", 1, pool, disk, 0, types.KeyTypeInteger, dir, nil, 0)
	if err != nil {
		log.Fatalf("open index: %v", err)
	}
	defer tree.Close()

	var results []result

	fmt.Printf("Inserting %d keys...\n", numKeys)
	insertStart := time.Now()
	for i := 0; i < numKeys; i++ {
		rid := types.RID{PageNumber: uint32(i/64) + 1, SlotNumber: uint32(i % 64)}
		if err := tree.InsertEntry(int32(i), rid); err != nil {
			log.Fatalf("insert %d: %v", i, err)
		}
	}
	insertElapsed := time.Since(insertStart)
	results = append(results, result{"bulk insert", insertElapsed})
	fmt.Printf("  inserted %d keys in %s (%.2f inserts/ms)\n", numKeys, insertElapsed, float64(numKeys)/insertElapsed.Seconds()/1000)
	fmt.Printf("  index file grew to %d pages\n", disk.TotalPages())

	mid := int32(numKeys / 2)
	scenarios := []scenario{
		{"full range scan", 0, index.GTE, int32(numKeys), index.LT},
		{"point lookup range (single key)", mid, index.GTE, mid, index.LTE},
		{"lower half, GT/LTE", 0, index.GT, mid, index.LTE},
		{"upper half, GTE/LT", mid, index.GTE, int32(numKeys), index.LT},
		{"narrow window (100 keys)", mid, index.GTE, mid + 100, index.LT},
		{"first key only", 0, index.GTE, 0, index.LTE},
		{"last key only", int32(numKeys - 1), index.GTE, int32(numKeys - 1), index.LTE},
		{"empty range below data", -1000, index.GTE, -1, index.LTE},
		{"empty range above data", int32(numKeys), index.GT, int32(numKeys) + 1000, index.LTE},
		{"exclusive bounds narrow", mid - 1, index.GT, mid + 1, index.LT},
	}

	for _, sc := range scenarios {
		start := time.Now()
		count := runScenario(tree, sc)
		elapsed := time.Since(start)
		results = append(results, result{sc.name, elapsed})
		fmt.Printf("  %-32s %8d rows  %s\n", sc.name, count, elapsed)
	}

	csvPath := dir + "/bench_results.csv"
	if err := writeCSV(csvPath, results); err != nil {
		log.Fatalf("write csv: %v", err)
	}
	fmt.Println("Wrote", csvPath)

	chartPath := "bench_latency.png"
	if err := renderChart(chartPath, results); err != nil {
		log.Fatalf("render chart: %v", err)
	}
	fmt.Println("Wrote", chartPath)
}

func runScenario(tree *index.Tree, sc scenario) int {
	if err := tree.StartScan(sc.low, sc.lowOp, sc.high, sc.highOp); err != nil {
		if index.KindOf(err) == index.NoSuchKeyFound {
			return 0
		}
		log.Fatalf("start scan %q: %v", sc.name, err)
	}
	defer tree.EndScan()

	count := 0
	for {
		if _, err := tree.ScanNext(); err != nil {
			if index.KindOf(err) == index.IndexScanCompleted {
				break
			}
			log.Fatalf("scan next %q: %v", sc.name, err)
		}
		count++
	}
	return count
}

func writeCSV(path string, results []result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"operation", "latency_ns"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{r.operation, strconv.FormatInt(r.latency.Nanoseconds(), 10)}); err != nil {
			return err
		}
	}
	return nil
}

func renderChart(path string, results []result) error {
	p := plot.New()
	p.Title.Text = "Index operation latency"
	p.Y.Label.Text = "latency (ms)"
	p.X.Tick.Label.Rotation = -0.8

	values := make(plotter.Values, len(results))
	labels := make([]string, len(results))
	for i, r := range results {
		values[i] = float64(r.latency.Microseconds()) / 1000.0
		labels[i] = r.operation
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return fmt.Errorf("new bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
