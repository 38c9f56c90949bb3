// Package partition implements a uniform tiling of a virtual array into
// Block files: block lookup by origin, neighbor addressing in the
// block grid, and partition-level read/write that dispatches to the
// overlapping blocks of the other side.
package partition

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/grailbio/keep/block"
	"github.com/grailbio/keep/kerrors"
)

// FillMode controls how a partition's blocks are initialized at
// construction time.
type FillMode int

const (
	// FillNone leaves blocks empty; nothing is written to disk.
	FillNone FillMode = iota
	// FillZeros fills every block with zeros, writes it, then clears it
	// from memory.
	FillZeros
	// FillRandom fills every block with unpredictable bytes, writes it,
	// then clears it from memory. Used only by the `--create` CLI path,
	// never by the scheduler itself.
	FillRandom
)

// Array describes the virtual three-dimensional array a Partition tiles.
// It owns no bytes; it exists only to constrain partition shapes.
type Array struct {
	Shape [3]int64
}

// Partition is a uniform tiling of an Array (or, if Array is nil, a
// single block describing the array itself) by Shape-sized blocks.
type Partition struct {
	Shape       [3]int64
	Name        string
	Array       *Array
	ElementSize int64

	// NumBlocks holds the per-axis block grid dimensions; zero value
	// (the array-as-partition case) leaves it unset.
	NumBlocks [3]int64

	// Blocks maps a block's origin to the Block itself.
	Blocks map[[3]int64]*block.Block

	// Order lists origins in row-major grid order (axis 2 fastest),
	// matching the deterministic read order required by §5.
	Order [][3]int64
}

// New constructs a partition of the given shape. If array is nil, the
// partition describes the array itself: a single block of shape Shape at
// origin zero, file "{name}.bin". Otherwise Array.Shape must be an exact
// multiple of shape along every axis.
func New(shape [3]int64, name string, array *Array, fill FillMode, elementSize int64) (*Partition, error) {
	for i := 0; i < 3; i++ {
		if shape[i] <= 0 {
			return nil, kerrors.New(kerrors.Invariant, "invalid shape %v", shape)
		}
	}
	if elementSize <= 0 {
		elementSize = 1
	}
	p := &Partition{
		Shape:       shape,
		Name:        name,
		Array:       array,
		ElementSize: elementSize,
		Blocks:      map[[3]int64]*block.Block{},
	}

	if array == nil {
		origin := [3]int64{0, 0, 0}
		b := block.NewSized(origin, shape, elementSize)
		b.FileName = fmt.Sprintf("%s.bin", name)
		p.Blocks[origin] = b
		p.Order = [][3]int64{origin}
		if err := p.applyFill(b, fill); err != nil {
			return nil, err
		}
		return p, nil
	}

	for i := 0; i < 3; i++ {
		if array.Shape[i]%shape[i] != 0 {
			return nil, kerrors.New(kerrors.Invariant, "array shape %v is not a multiple of block shape %v on axis %d", array.Shape, shape, i)
		}
		p.NumBlocks[i] = array.Shape[i] / shape[i]
	}

	offset := int64(0)
	blockBytes := shape[0] * shape[1] * shape[2] * elementSize
	for i := int64(0); i < p.NumBlocks[0]; i++ {
		for j := int64(0); j < p.NumBlocks[1]; j++ {
			for k := int64(0); k < p.NumBlocks[2]; k++ {
				origin := [3]int64{i * shape[0], j * shape[1], k * shape[2]}
				b := block.NewSized(origin, shape, elementSize)
				b.FileName = fmt.Sprintf("%s_block_%d.bin", name, offset)
				p.Blocks[origin] = b
				p.Order = append(p.Order, origin)
				offset += blockBytes
				if err := p.applyFill(b, fill); err != nil {
					return nil, err
				}
			}
		}
	}
	return p, nil
}

func (p *Partition) applyFill(b *block.Block, fill FillMode) error {
	switch fill {
	case FillNone:
		return nil
	case FillZeros:
		b.Data = block.NewData(make([]byte, b.ByteSize()))
	case FillRandom:
		buf := make([]byte, b.ByteSize())
		if _, err := rand.Read(buf); err != nil {
			return kerrors.Wrap(kerrors.IO, err, "generating random fill")
		}
		b.Data = block.NewData(buf)
	default:
		return kerrors.New(kerrors.Invariant, "unknown fill mode %d", fill)
	}
	if _, _, err := b.Write(); err != nil {
		return err
	}
	b.Clear()
	return nil
}

// ReadBlock reads the relevant sections of every partition block that
// overlaps target into target's buffer, aggregating byte/seek/time
// counters.
func (p *Partition) ReadBlock(target *block.Block) (bytesRead int64, seeks int, ioTime time.Duration, err error) {
	for _, origin := range p.Order {
		b := p.Blocks[origin]
		n, s, t, rerr := target.ReadFrom(b)
		if rerr != nil {
			return bytesRead, seeks, ioTime, rerr
		}
		bytesRead += n
		seeks += s
		ioTime += t
	}
	return bytesRead, seeks, ioTime, nil
}

// WriteBlock writes the relevant sections of source's buffer into every
// partition block that overlaps it, aggregating byte/seek/time counters.
func (p *Partition) WriteBlock(source *block.Block) (bytesWritten int64, seeks int, ioTime time.Duration, err error) {
	for _, origin := range p.Order {
		b := p.Blocks[origin]
		n, s, t, werr := source.WriteTo(b)
		if werr != nil {
			return bytesWritten, seeks, ioTime, werr
		}
		bytesWritten += n
		seeks += s
		ioTime += t
	}
	return bytesWritten, seeks, ioTime, nil
}

// NeighborIndex returns the flat grid index of the neighbor of index
// along axis in positive orientation, using row-major grid ordering
// (axis 2 stride 1, axis 1 stride NumBlocks[2], axis 0 stride
// NumBlocks[1]*NumBlocks[2]). Out-of-bounds neighbors are undefined: the
// keep planner only asks for in-bounds neighbors by construction of
// F-block indices.
func (p *Partition) NeighborIndex(index int, axis int) int {
	switch axis {
	case 2:
		return index + 1
	case 1:
		return index + int(p.NumBlocks[2])
	case 0:
		return index + int(p.NumBlocks[1]*p.NumBlocks[2])
	default:
		panic(fmt.Sprintf("partition: invalid axis %d", axis))
	}
}

// BlocksInOrder returns every block in the partition, in Order.
func (p *Partition) BlocksInOrder() []*block.Block {
	out := make([]*block.Block, len(p.Order))
	for i, origin := range p.Order {
		out[i] = p.Blocks[origin]
	}
	return out
}

// Clear drops the in-memory buffer of every block in the partition.
func (p *Partition) Clear() {
	for _, origin := range p.Order {
		p.Blocks[origin].Clear()
	}
}

// Delete removes every block's file from disk.
func (p *Partition) Delete() error {
	for _, origin := range p.Order {
		b := p.Blocks[origin]
		if b.FileName == "" {
			continue
		}
		if err := os.Remove(b.FileName); err != nil && !os.IsNotExist(err) {
			return kerrors.Wrap(kerrors.IO, err, "remove "+b.FileName)
		}
	}
	return nil
}

// Write writes every block in the partition to disk; each block must hold
// its full data. New already writes every block when a fill mode other
// than FillNone is given.
func (p *Partition) Write() error {
	for _, origin := range p.Order {
		if _, _, err := p.Blocks[origin].Write(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Partition) String() string {
	if p.Array == nil {
		return fmt.Sprintf("Partition %s of shape %v", p.Name, p.Shape)
	}
	return fmt.Sprintf("Partition %s of shape %v of array of shape %v", p.Name, p.Shape, p.Array.Shape)
}
