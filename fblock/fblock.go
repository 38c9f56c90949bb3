// Package fblock decomposes a read block into the up to eight F-blocks
// aligned to an output partition's grid lines, the step that turns a
// read-shaped block of bytes into pieces addressable by the output
// partition.
package fblock

import (
	"github.com/grailbio/keep/block"
	"github.com/grailbio/keep/partition"
)

// Decompose splits w into its F-blocks against the output partition out.
// Index 0 is F0 (always present and non-empty); indices 1..7 follow the
// fixed ordering of (axis 2), (axis 1), (axis 1+2), (axis 0), (axis 0+2),
// (axis 0+1), (axis 0+1+2). Absent (zero-volume) F-blocks are nil. When
// withData is true, each non-nil entry's buffer is populated from w's
// data via GetDataBlock.
func Decompose(w *block.Block, out *partition.Partition, withData bool) [8]*block.Block {
	var f0Shape [3]int64
	for d := 0; d < 3; d++ {
		f0Shape[d] = f0Extent(w.Origin[d], w.Shape[d], out.Shape[d])
	}

	o0, o1, o2 := w.Origin[0], w.Origin[1], w.Origin[2]
	s0, s1, s2 := w.Shape[0], w.Shape[1], w.Shape[2]
	f0, f1, f2 := f0Shape[0], f0Shape[1], f0Shape[2]
	r0, r1, r2 := s0-f0, s1-f1, s2-f2 // remainder along each axis

	specs := [8]struct {
		origin [3]int64
		shape  [3]int64
	}{
		0: {[3]int64{o0, o1, o2}, [3]int64{f0, f1, f2}},
		1: {[3]int64{o0, o1, o2 + f2}, [3]int64{f0, f1, r2}},
		2: {[3]int64{o0, o1 + f1, o2}, [3]int64{f0, r1, f2}},
		3: {[3]int64{o0, o1 + f1, o2 + f2}, [3]int64{f0, r1, r2}},
		4: {[3]int64{o0 + f0, o1, o2}, [3]int64{r0, f1, f2}},
		5: {[3]int64{o0 + f0, o1, o2 + f2}, [3]int64{r0, f1, r2}},
		6: {[3]int64{o0 + f0, o1 + f1, o2}, [3]int64{r0, r1, f2}},
		7: {[3]int64{o0 + f0, o1 + f1, o2 + f2}, [3]int64{r0, r1, r2}},
	}

	var result [8]*block.Block
	for i, s := range specs {
		if s.shape[0] <= 0 || s.shape[1] <= 0 || s.shape[2] <= 0 {
			continue
		}
		b := block.NewSized(s.origin, s.shape, w.ElementSize)
		if withData {
			b = w.GetDataBlock(b)
		}
		result[i] = b
	}
	return result
}

// f0Extent returns F0's extent along one axis: the distance from origin
// to the smallest output-grid end coordinate strictly inside
// (origin, origin+shape), or shape if no such coordinate exists.
func f0Extent(origin, shape, outShape int64) int64 {
	first := (origin/outShape + 1) * outShape
	if first > origin && first < origin+shape {
		return first - origin
	}
	return shape
}
