package main

// Example command that opens a grasp dataset, reads a few records
// sequentially and samples one labeled batch, converting it into gomlx
// tensors.
//
// Usage:
//   go run ./datasets/example -root ./SG_data -hooks 3 -shape C+
//
// The reader only touches one shard at a time; the first shard is loaded
// when the reader is constructed.

import (
	"flag"
	"fmt"
	"log"

	"github.com/Noofbiz/graspData/datasets"
)

func main() {
	root := flag.String("root", "SG_data", "dataset root containing the <hooks>_hooks directories")
	hooks := flag.Int("hooks", 3, "number of hooks (2, 3 or 4)")
	shape := flag.String("shape", "C+", "hook shape tag")
	endDir := flag.Int("end-dir", 4, "last directory index")
	endFile := flag.Int("end-file", 0, "last file index in each directory")
	perFile := flag.Int("per-file", 10000, "records per shard file")
	bad := flag.Bool("bad", true, "also load bad grasps")
	flag.Parse()

	cfg := datasets.DefaultReaderConfig(*root)
	cfg.NumHooks = *hooks
	cfg.Shape = *shape
	cfg.EndDir = *endDir
	cfg.EndFile = *endFile
	cfg.RecordsPerFile = *perFile
	cfg.BadGrasps = *bad

	reader, err := datasets.NewShardedReader(cfg)
	if err != nil {
		log.Fatalf("failed to open grasp dataset: %v", err)
	}
	fmt.Printf("Reading shards under %s\n", reader.Path())

	records, err := reader.ReadGoodRecords(min(5, cfg.RecordsPerFile))
	if err != nil {
		log.Fatalf("failed to read records: %v", err)
	}
	for _, rec := range records {
		fmt.Printf("  %s record %d: grasp=%v feature dims=%d state=%T\n",
			rec.Addr, rec.Index, rec.Grasp, len(rec.Feature), rec.State)
	}

	if !cfg.BadGrasps {
		return
	}
	batch, err := reader.RandomBatch(min(32, cfg.RecordsPerFile), 0.5)
	if err != nil {
		log.Fatalf("failed to sample batch: %v", err)
	}
	grasps, features, labels, err := batch.ToGomlxTensors()
	if err != nil {
		log.Fatalf("failed to convert batch to gomlx tensors: %v", err)
	}
	fmt.Printf("Created batch tensors: grasps=%s features=%s labels=%s\n",
		grasps.Shape(), features.Shape(), labels.Shape())
}
