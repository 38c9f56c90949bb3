package keep

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/keep/block"
	"github.com/grailbio/keep/fblock"
	"github.com/grailbio/keep/kerrors"
	"github.com/grailbio/keep/partition"
)

// Planner holds the outcome of Plan: the read block shape the scheduler
// will use, the read-block grid, the routing table from (read block,
// F-index) to destination write block, and the predicted cost of running
// with this shape.
type Planner struct {
	ReadShape       [3]int64
	ReadBlocks      *partition.Partition
	Out             *partition.Partition
	Match           map[matchKey]*block.Block
	ExpectedSeeks   int
	ExpectedPeakMem int64
}

// NewCache returns a fresh KeepCache wired to this plan's routing table.
func (p *Planner) NewCache() *KeepCache {
	return NewKeepCache(p.Out, p.Match)
}

// Divisors returns every positive divisor of n, ascending, including n
// itself (e.g. Divisors(42) = [1 2 3 6 7 14 21 42]).
func Divisors(n int64) []int64 {
	if n <= 0 {
		return nil
	}
	var out []int64
	for x := int64(1); x <= n; x++ {
		if n%x == 0 {
			out = append(out, x)
		}
	}
	return out
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// Plan computes the preferred read shape r_hat = I_d * ceil(O_d / I_d)
// for each axis, verifies it tiles the array, and -- if r_hat's implied
// peak memory would exceed maxMem -- narrows axis 0 only, trying
// successively smaller divisors of the array's axis-0 extent (largest
// first) until the dry-run estimate fits. maxMem of nil or <= 0 means
// unbounded.
func Plan(in, out *partition.Partition, maxMem *int64) (*Planner, error) {
	if in.Array == nil || out.Array == nil {
		return nil, kerrors.New(kerrors.Invariant, "plan requires both partitions to describe a shared array")
	}
	array := in.Array
	var rHat [3]int64
	for d := 0; d < 3; d++ {
		rHat[d] = in.Shape[d] * ceilDiv(out.Shape[d], in.Shape[d])
		if array.Shape[d]%rHat[d] != 0 {
			return nil, kerrors.New(kerrors.Invariant, "preferred read shape %v does not divide array shape %v on axis %d", rHat, array.Shape, d)
		}
	}

	candidates := []int64{rHat[0]}
	if maxMem != nil && *maxMem > 0 {
		candidates = candidates[:0]
		for _, d := range Divisors(array.Shape[0]) {
			if d <= rHat[0] {
				candidates = append(candidates, d)
			}
		}
		// Largest first: prefer the biggest read shape that still fits.
		for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}
	}

	var lastErr error
	for _, c := range candidates {
		shape := [3]int64{c, rHat[1], rHat[2]}
		p, err := build(array, in, out, shape)
		if err != nil {
			lastErr = err
			continue
		}
		if maxMem == nil || *maxMem <= 0 || p.ExpectedPeakMem <= *maxMem {
			log.Debug.Printf("keep: chose read shape %v (peak mem %dB, %d seeks)", shape, p.ExpectedPeakMem, p.ExpectedSeeks)
			return p, nil
		}
		log.Debug.Printf("keep: read shape %v needs %dB, exceeds bound %dB", shape, p.ExpectedPeakMem, *maxMem)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, kerrors.New(kerrors.Infeasible, "no read shape with axis-0 extent dividing %d satisfies memory bound %v", array.Shape[0], maxMem)
}

func build(array *partition.Array, in, out *partition.Partition, shape [3]int64) (*Planner, error) {
	readGrid, err := partition.New(shape, "read", array, partition.FillNone, in.ElementSize)
	if err != nil {
		return nil, err
	}

	match := map[matchKey]*block.Block{}
	for _, origin := range readGrid.Order {
		placeholder := block.NewSized(origin, shape, in.ElementSize)
		fblocks := fblock.Decompose(placeholder, out, false)
		for f, fb := range fblocks {
			if fb == nil {
				continue
			}
			dest, derr := destinationBlock(out, fb)
			if derr != nil {
				return nil, derr
			}
			match[matchKey{origin, f}] = dest
		}
	}

	// Every destination is one of out's own blocks, and each is written
	// exactly once, whole, once every read block overlapping it has been
	// consumed -- one seek per output block.
	seeks := SeekCount(readGrid.BlocksInOrder(), in.BlocksInOrder()) + len(out.Order)

	peak, err := estimatePeakMemory(readGrid, match, out)
	if err != nil {
		return nil, err
	}

	return &Planner{
		ReadShape:       shape,
		ReadBlocks:      readGrid,
		Out:             out,
		Match:           match,
		ExpectedSeeks:   seeks,
		ExpectedPeakMem: peak,
	}, nil
}

// destinationBlock returns the output partition block that contains fb
// whole, found by flooring fb's origin to the output grid line on each
// axis. fblock.Decompose never produces an F-block that straddles an
// output grid line, so this block always exists and always contains fb.
func destinationBlock(out *partition.Partition, fb *block.Block) (*block.Block, error) {
	var origin [3]int64
	for d := 0; d < 3; d++ {
		origin[d] = (fb.Origin[d] / out.Shape[d]) * out.Shape[d]
	}
	dest, ok := out.Blocks[origin]
	if !ok {
		return nil, kerrors.New(kerrors.Invariant, "no output block at %v for F-block at %v shape %v", origin, fb.Origin, fb.Shape)
	}
	return dest, nil
}

// estimatePeakMemory dry-runs the scheduler over readGrid's blocks in
// order, inserting each into a fresh KeepCache with dryRun=true and
// tracking the running total of resident write-block bytes, releasing a
// write block's bytes the step it completes. This mirrors the real
// scheduler's cache bookkeeping exactly, without touching any file.
func estimatePeakMemory(readGrid *partition.Partition, match map[matchKey]*block.Block, out *partition.Partition) (int64, error) {
	cache := NewKeepCache(out, match)
	var peak int64
	for _, origin := range readGrid.Order {
		r := readGrid.Blocks[origin]
		completed, err := cache.Insert(r, true)
		if err != nil {
			return 0, err
		}
		if cache.MemUsage() > peak {
			peak = cache.MemUsage()
		}
		for _, w := range completed {
			w.Clear()
			cache.Release(w)
		}
	}
	return peak, nil
}
