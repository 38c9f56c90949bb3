// Package keep implements the planner and block cache of the keep
// repartitioning algorithm: the routing of F-blocks from read blocks to
// the write blocks they complete, and the memory-bounded shape search
// that picks the read block size the scheduler will use.
package keep

import (
	"github.com/grailbio/keep/block"
	"github.com/grailbio/keep/fblock"
	"github.com/grailbio/keep/kerrors"
	"github.com/grailbio/keep/partition"
)

// Cache accumulates the F-blocks produced by reading each read block of a
// repartition run and reports which write blocks they complete. It is a
// tagged sum of two concrete strategies -- KeepCache and BaselineCache --
// rather than a class hierarchy, matching how the underlying algorithms
// differ (routed partial writes vs. identity passthrough) more than they
// share.
type Cache interface {
	// Insert folds read block r into the cache and returns every write
	// block that became complete as a result, in no particular order. When
	// dryRun is true, no bytes are copied or retained; only sizes are
	// tracked, for the planner's memory estimator.
	Insert(r *block.Block, dryRun bool) ([]*block.Block, error)

	// MemUsage returns the total bytes currently resident across every
	// write block the cache is tracking.
	MemUsage() int64
}

type matchKey struct {
	readOrigin [3]int64
	f          int
}

// KeepCache implements the keep method: it routes each read block's
// F-blocks to the write block that owns their destination, per the
// planner's match table, and reports a write block complete (and stops
// tracking it) the first time its buffer fills.
type KeepCache struct {
	out   *partition.Partition
	match map[matchKey]*block.Block

	resident map[*block.Block]bool
	returned map[*block.Block]bool
}

// NewKeepCache constructs a KeepCache from the planner's routing table.
func NewKeepCache(out *partition.Partition, match map[matchKey]*block.Block) *KeepCache {
	return &KeepCache{
		out:      out,
		match:    match,
		resident: map[*block.Block]bool{},
		returned: map[*block.Block]bool{},
	}
}

func (c *KeepCache) Insert(r *block.Block, dryRun bool) ([]*block.Block, error) {
	fblocks := fblock.Decompose(r, c.out, !dryRun)
	var completed []*block.Block
	for i, fb := range fblocks {
		if fb == nil {
			continue
		}
		dest, ok := c.match[matchKey{r.Origin, i}]
		if !ok || dest == nil {
			return nil, kerrors.New(kerrors.Invariant, "no destination write block for F%d of read block at %v", i, r.Origin)
		}
		if dryRun {
			dest.AddVirtualBytes(fb.Volume() * fb.ElementSize)
		} else if err := dest.PutDataBlock(fb); err != nil {
			return nil, err
		}
		c.resident[dest] = true
		if dest.Complete() && !c.returned[dest] {
			c.returned[dest] = true
			completed = append(completed, dest)
		}
	}
	return completed, nil
}

func (c *KeepCache) MemUsage() int64 {
	var total int64
	for dest := range c.resident {
		if !c.returned[dest] {
			total += dest.MemUsage()
		}
	}
	return total
}

// Release stops the cache from tracking a write block's memory, called by
// the scheduler once it has written the block to its output file.
func (c *KeepCache) Release(w *block.Block) {
	delete(c.resident, w)
}

// BaselineCache implements the identity method: every read block is its
// own (only) write block, passed straight through with no routing.
// Grounded on the original implementation's baseline() helper, which reads
// and writes the input partition's own blocks unchanged.
type BaselineCache struct {
	resident map[*block.Block]bool
}

// NewBaselineCache constructs a BaselineCache.
func NewBaselineCache() *BaselineCache {
	return &BaselineCache{resident: map[*block.Block]bool{}}
}

func (c *BaselineCache) Insert(r *block.Block, dryRun bool) ([]*block.Block, error) {
	if dryRun {
		r.AddVirtualBytes(r.Volume() * r.ElementSize)
	}
	c.resident[r] = true
	return []*block.Block{r}, nil
}

func (c *BaselineCache) MemUsage() int64 {
	var total int64
	for r := range c.resident {
		total += r.MemUsage()
	}
	return total
}

// Release stops the cache from tracking a read block's memory.
func (c *BaselineCache) Release(r *block.Block) {
	delete(c.resident, r)
}
