//go:build ignore

// generate_testdata.go creates synthetic checklists for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	tests/testdata/benchmark/small.csv    (1000 records)
//	tests/testdata/benchmark/medium.csv   (10000 records)
//	tests/testdata/benchmark/large.csv    (50000 records)
//	tests/testdata/benchmark/large.jsonl  (same records as JSON Lines)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/taxa/pkg/loader"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/testutil"
)

type datasetSpec struct {
	name      string
	size      int
	branching int
	jsonl     bool
}

var datasets = []datasetSpec{
	{"small", 1000, 3, false},
	{"medium", 10000, 4, false},
	{"large", 50000, 6, true},
}

func main() {
	outputDir := "tests/testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d records)...\n", ds.name, ds.size)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:       int64(ds.size), // Reproducible per-size
			IDPrefix:   "bench",
			Branching:  ds.branching,
			LocalNames: true,
			StatusMix: []model.Status{
				model.StatusCurrent, model.StatusCurrent, model.StatusCurrent,
				model.StatusJuniorSynonym, model.StatusNewRecord,
			},
		})
		records := gen.Random(ds.size)

		write(filepath.Join(outputDir, ds.name+".csv"), testutil.ToCSV(records, loader.DefaultColumns()))
		if ds.jsonl {
			write(filepath.Join(outputDir, ds.name+".jsonl"), testutil.ToJSONL(records))
		}
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}

func write(path, data string) {
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("  Written %s (%d bytes)\n", path, len(data))
}
