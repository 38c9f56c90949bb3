// Package repartition drives the repartitioning scheduler: it reads each
// read block in deterministic row-major order, folds it into a Cache, and
// writes out every write block the cache reports complete, until every
// read block has been consumed.
package repartition

import (
	"context"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/keep/keep"
	"github.com/grailbio/keep/kerrors"
	"github.com/grailbio/keep/partition"
)

// Method selects the repartitioning strategy.
type Method int

const (
	// MethodKeep routes F-blocks to their destination write block via the
	// planner's routing table, minimizing memory and seeks.
	MethodKeep Method = iota
	// MethodBaseline reads and writes the input partition's own blocks
	// unchanged -- the identity mapping, grounded on original_source's
	// baseline() helper.
	MethodBaseline
)

// Result summarizes one repartition run, the core -> collaborator
// contract of spec.md §6.
type Result struct {
	TotalBytes int64
	Seeks      int
	PeakMem    int64
	ReadTime   time.Duration
	WriteTime  time.Duration
	Elapsed    time.Duration
}

// Run repartitions in into out using method, bounding resident cache
// memory to maxMem bytes (nil or <= 0 means unbounded). When dryRun is
// true, no files are touched: Result reflects the planner's prediction
// rather than an actual run.
func Run(ctx context.Context, in, out *partition.Partition, method Method, maxMem *int64, dryRun bool) (Result, error) {
	start := time.Now()
	switch method {
	case MethodKeep:
		return runKeep(ctx, in, out, maxMem, dryRun, start)
	case MethodBaseline:
		return runBaseline(ctx, in, out, dryRun, start)
	default:
		return Result{}, kerrors.New(kerrors.Invariant, "unknown repartition method %d", method)
	}
}

func runKeep(ctx context.Context, in, out *partition.Partition, maxMem *int64, dryRun bool, start time.Time) (Result, error) {
	plan, err := keep.Plan(in, out, maxMem)
	if err != nil {
		return Result{}, err
	}
	log.Debug.Printf("repartition: plan read shape %v, predicted %d seeks, %dB peak", plan.ReadShape, plan.ExpectedSeeks, plan.ExpectedPeakMem)

	if dryRun {
		return Result{
			TotalBytes: 2 * in.Array.Shape[0] * in.Array.Shape[1] * in.Array.Shape[2] * in.ElementSize,
			Seeks:      plan.ExpectedSeeks,
			PeakMem:    plan.ExpectedPeakMem,
			Elapsed:    time.Since(start),
		}, nil
	}

	cache := plan.NewCache()
	var res Result
	for _, origin := range plan.ReadBlocks.Order {
		if err := ctx.Err(); err != nil {
			return res, kerrors.Wrap(kerrors.IO, err, "repartition cancelled")
		}
		r := plan.ReadBlocks.Blocks[origin]
		n, seeks, readTime, err := in.ReadBlock(r)
		if err != nil {
			return res, err
		}
		res.TotalBytes += n
		res.Seeks += seeks
		res.ReadTime += readTime

		completed, err := cache.Insert(r, false)
		if err != nil {
			return res, err
		}
		r.Clear()
		if mu := cache.MemUsage(); mu > res.PeakMem {
			res.PeakMem = mu
		}

		for _, w := range completed {
			n, seeks, writeTime, err := out.WriteBlock(w)
			if err != nil {
				return res, err
			}
			res.TotalBytes += n
			res.Seeks += seeks
			res.WriteTime += writeTime
			w.Clear()
			cache.Release(w)
		}
	}
	if res.Seeks != plan.ExpectedSeeks {
		return res, kerrors.New(kerrors.Invariant, "observed %d seeks diverges from planned %d", res.Seeks, plan.ExpectedSeeks)
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func runBaseline(ctx context.Context, in, out *partition.Partition, dryRun bool, start time.Time) (Result, error) {
	if dryRun {
		memBlocks := in.BlocksInOrder()
		seeks := keep.SeekCount(memBlocks, in.BlocksInOrder()) + keep.SeekCount(memBlocks, out.BlocksInOrder())
		var peak int64
		for _, b := range memBlocks {
			peak += b.ByteSize()
		}
		return Result{
			TotalBytes: 2 * in.Array.Shape[0] * in.Array.Shape[1] * in.Array.Shape[2] * in.ElementSize,
			Seeks:      seeks,
			PeakMem:    peak,
			Elapsed:    time.Since(start),
		}, nil
	}

	cache := keep.NewBaselineCache()
	var res Result
	for _, origin := range in.Order {
		if err := ctx.Err(); err != nil {
			return res, kerrors.Wrap(kerrors.IO, err, "repartition cancelled")
		}
		r := in.Blocks[origin]
		n, readTime, err := r.Read()
		if err != nil {
			return res, err
		}
		res.TotalBytes += n
		res.Seeks++
		res.ReadTime += readTime

		completed, err := cache.Insert(r, false)
		if err != nil {
			return res, err
		}
		if mu := cache.MemUsage(); mu > res.PeakMem {
			res.PeakMem = mu
		}

		for _, w := range completed {
			n, seeks, writeTime, err := out.WriteBlock(w)
			if err != nil {
				return res, err
			}
			res.TotalBytes += n
			res.Seeks += seeks
			res.WriteTime += writeTime
			w.Clear()
			cache.Release(w)
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}
