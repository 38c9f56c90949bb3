/*
repartition rewrites a block-partitioned array from one uniform block
shape to another. It is the CLI front end for the keep repartitioning
engine: `repartition A I O method [flags]` reads a partition of shape I
over an array of shape A and produces a partition of shape O, using
either the keep method (routed, memory-bounded) or the baseline method
(identity read/write, for comparison).
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/keep/partition"
	"github.com/grailbio/keep/repartition"
)

var (
	create      = flag.Bool("create", false, "Create the input partition, filled with fresh unpredictable bytes")
	doRepart    = flag.Bool("repartition", false, "Repartition the input partition (shape I) into the output partition (shape O)")
	testData    = flag.Bool("test-data", false, "Reconstruct the array from both partitions and verify they are byte-exact")
	deleteOut   = flag.Bool("delete", false, "Remove the output partition's block files")
	maxMemFlag  = flag.Int64("max-mem", 0, "Upper bound, in bytes, on resident cache memory during repartition; 0 means unbounded")
	dryRun      = flag.Bool("dry-run", false, "Predict seeks and peak memory without touching any file")
	elementSize = flag.Int64("element-size", 1, "Per-element byte size (array elements are opaque fixed-size bytes)")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] A I O method\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  A, I, O: array/input-block/output-block shapes, as \"(a,b,c)\"\n")
	fmt.Fprintf(os.Stderr, "  method: keep | baseline\n")
	fmt.Fprintf(os.Stderr, "Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 4 {
		log.Fatalf("expected 4 positional arguments (A I O method), got %d: %s", flag.NArg(), strings.Join(flag.Args(), " "))
	}
	args := flag.Args()
	aShape, err := parseTuple(args[0])
	if err != nil {
		log.Fatalf("parsing A: %v", err)
	}
	iShape, err := parseTuple(args[1])
	if err != nil {
		log.Fatalf("parsing I: %v", err)
	}
	oShape, err := parseTuple(args[2])
	if err != nil {
		log.Fatalf("parsing O: %v", err)
	}
	method, err := parseMethod(args[3])
	if err != nil {
		log.Fatalf("parsing method: %v", err)
	}

	if !*create && !*doRepart && !*testData && !*deleteOut {
		*doRepart = iShape != oShape
	}

	ctx := vcontext.Background()
	array := &partition.Array{Shape: aShape}

	if *create {
		log.Debug.Printf("repartition: creating input partition of shape %v over array %v", iShape, aShape)
		if _, err := partition.New(iShape, "in", array, partition.FillRandom, *elementSize); err != nil {
			log.Fatalf("creating input partition: %v", err)
		}
	}

	if *doRepart {
		in, err := partition.New(iShape, "in", array, partition.FillNone, *elementSize)
		if err != nil {
			log.Fatalf("opening input partition: %v", err)
		}
		out, err := partition.New(oShape, "out", array, partition.FillNone, *elementSize)
		if err != nil {
			log.Fatalf("opening output partition: %v", err)
		}
		var maxMem *int64
		if *maxMemFlag > 0 {
			maxMem = maxMemFlag
		}
		res, err := repartition.Run(ctx, in, out, method, maxMem, *dryRun)
		if err != nil {
			log.Fatalf("repartition failed: %v", err)
		}
		log.Debug.Printf("repartition: %d seeks, %d bytes peak mem, %s elapsed", res.Seeks, res.PeakMem, res.Elapsed)
		logResult(res)
	}

	if *testData {
		if err := verifyByteExact(array, iShape, oShape); err != nil {
			log.Fatalf("test-data verification failed: %v", err)
		}
		log.Debug.Printf("repartition: input and output partitions are byte-exact")
	}

	if *deleteOut {
		out, err := partition.New(oShape, "out", array, partition.FillNone, *elementSize)
		if err != nil {
			log.Fatalf("opening output partition: %v", err)
		}
		if err := out.Delete(); err != nil {
			log.Fatalf("deleting output partition: %v", err)
		}
	}
}

func parseMethod(s string) (repartition.Method, error) {
	switch strings.ToLower(s) {
	case "keep":
		return repartition.MethodKeep, nil
	case "baseline":
		return repartition.MethodBaseline, nil
	default:
		return 0, fmt.Errorf("unknown method %q (want keep or baseline)", s)
	}
}
