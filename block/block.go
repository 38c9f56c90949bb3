// Package block implements the block-geometry kernel and block I/O of the
// keep repartitioning engine: computing byte-offset runs for the
// intersection of two axis-aligned cuboid blocks, and the scatter/gather
// reads and writes built on top of that geometry.
package block

import (
	"fmt"
)

// Run is a contiguous byte-offset range [Start, End], both inclusive.
type Run struct {
	Start, End int64
}

// Block is an axis-aligned cuboid region of a three-dimensional array,
// with an optional on-disk file and an in-memory Data buffer.
type Block struct {
	Origin      [3]int64
	Shape       [3]int64
	FileName    string
	ElementSize int64

	Data *Data
}

// New returns a Block with the given origin and shape and an empty data
// buffer. ElementSize is 1.
func New(origin, shape [3]int64) *Block {
	return NewSized(origin, shape, 1)
}

// NewSized returns a Block with the given origin, shape and per-element
// byte size.
func NewSized(origin, shape [3]int64, elementSize int64) *Block {
	if elementSize <= 0 {
		elementSize = 1
	}
	return &Block{
		Origin:      origin,
		Shape:       shape,
		ElementSize: elementSize,
		Data:        &Data{},
	}
}

// End returns the inclusive high corner of the block.
func (b *Block) End() [3]int64 {
	return [3]int64{
		b.Origin[0] + b.Shape[0] - 1,
		b.Origin[1] + b.Shape[1] - 1,
		b.Origin[2] + b.Shape[2] - 1,
	}
}

// Volume returns the number of elements (not bytes) covered by the block.
func (b *Block) Volume() int64 {
	return b.Shape[0] * b.Shape[1] * b.Shape[2]
}

// ByteSize returns the number of bytes the block's full data occupies.
func (b *Block) ByteSize() int64 {
	es := b.ElementSize
	if es <= 0 {
		es = 1
	}
	return b.Volume() * es
}

// Empty reports whether the block has zero volume along any axis.
func (b *Block) Empty() bool {
	return b.Shape[0] <= 0 || b.Shape[1] <= 0 || b.Shape[2] <= 0
}

// Complete reports whether the block's buffer holds exactly ByteSize bytes.
func (b *Block) Complete() bool {
	return b.Data.MemUsage() == b.ByteSize()
}

// MemUsage returns the number of bytes currently resident in the block's
// buffer.
func (b *Block) MemUsage() int64 {
	return b.Data.MemUsage()
}

// Clear drops the block's in-memory buffer.
func (b *Block) Clear() {
	b.Data.Clear()
}

func (b *Block) String() string {
	s := fmt.Sprintf("Block: origin %v; shape %v; data in mem: %dB", b.Origin, b.Shape, b.Data.MemUsage())
	if b.FileName != "" {
		s += fmt.Sprintf("; file_name: %s", b.FileName)
	}
	return s
}

// Offset returns the offset of point within self's row-major layout
// (axis 2 fastest), in elements, not bytes.
func (b *Block) Offset(point [3]int64) int64 {
	return (point[2] - b.Origin[2]) +
		b.Shape[2]*(point[1]-b.Origin[1]) +
		b.Shape[2]*b.Shape[1]*(point[0]-b.Origin[0])
}

// Overlap reports whether self and other intersect on all three axes. A
// point on the high boundary is inside; a block with any zero-sized axis
// overlaps nothing.
func (b *Block) Overlap(other *Block) bool {
	if b.Empty() || other.Empty() {
		return false
	}
	selfEnd := b.End()
	otherEnd := other.End()
	for i := 0; i < 3; i++ {
		if !(other.Origin[i] <= selfEnd[i] && b.Origin[i] <= otherEnd[i]) {
			return false
		}
	}
	return true
}

// Offsets returns, for the intersection of self and other, the
// intersection's origin and shape, and the ordered list of element-offset
// runs (in self's row-major layout, not bytes) covering it. Runs are
// monotonically increasing and coalesce contiguous axis-2 cells. If self
// and other do not overlap, shape is the zero shape and runs is empty.
func (b *Block) Offsets(other *Block) (origin, shape [3]int64, runs []Run) {
	if !b.Overlap(other) {
		return [3]int64{}, [3]int64{}, nil
	}

	for i := 0; i < 3; i++ {
		if other.Origin[i] > b.Origin[i] {
			origin[i] = other.Origin[i]
		} else {
			origin[i] = b.Origin[i]
		}
	}
	var end [3]int64
	for i := 0; i < 3; i++ {
		oEnd := other.Origin[i] + other.Shape[i]
		sEnd := b.Origin[i] + b.Shape[i]
		if oEnd < sEnd {
			end[i] = oEnd
		} else {
			end[i] = sEnd
		}
	}
	for i := 0; i < 3; i++ {
		shape[i] = end[i] - origin[i]
	}

	delta2 := end[2] - origin[2]
	delta1 := b.Shape[2] - delta2
	delta0 := (b.Shape[1] - (end[1] - origin[1])) * b.Shape[2]

	current := b.Offset(origin)
	startSeg := current

	for i := int64(0); i < end[0]-origin[0]; i++ {
		for j := int64(0); j < end[1]-origin[1]; j++ {
			if delta2 != 0 {
				current += delta2
			}
			if delta1 != 0 {
				endSeg := current - 1
				runs = append(runs, Run{startSeg, endSeg})
				current += delta1
				startSeg = current
			}
		}
		if delta0 != 0 {
			if delta1 == 0 {
				endSeg := current - 1
				runs = append(runs, Run{startSeg, endSeg})
			}
			current += delta0
			startSeg = current
		}
	}

	if len(runs) == 0 {
		runs = append(runs, Run{startSeg, current - 1})
	}
	return origin, shape, runs
}
