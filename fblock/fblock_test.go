package fblock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/keep/block"
	"github.com/grailbio/keep/partition"
)

func mustOutPartition(t *testing.T, shape [3]int64) *partition.Partition {
	t.Helper()
	array := &partition.Array{Shape: [3]int64{2, 2, 2}}
	p, err := partition.New(shape, "out", array, partition.FillNone, 1)
	require.NoError(t, err)
	return p
}

// S1: a read block spanning the whole 2x2x2 array, against an output grid
// cut once on axis 1. F0 should stop at the interior grid line, and F2
// (axis 1) should cover the remainder.
func TestDecomposeScenarioS1(t *testing.T) {
	out := mustOutPartition(t, [3]int64{2, 1, 2})
	w := block.NewSized([3]int64{0, 0, 0}, [3]int64{2, 2, 2}, 1)

	fblocks := Decompose(w, out, false)
	require.NotNil(t, fblocks[0])
	require.Equal(t, [3]int64{2, 1, 2}, fblocks[0].Shape)

	require.Nil(t, fblocks[1])
	require.Nil(t, fblocks[4])
	require.Nil(t, fblocks[5])

	require.NotNil(t, fblocks[2])
	require.Equal(t, [3]int64{2, 1, 2}, fblocks[2].Shape)
	require.Equal(t, [3]int64{0, 1, 0}, fblocks[2].Origin)
}

// A read block that sits entirely within one output grid cell produces only
// F0, spanning the block's own shape.
func TestDecomposeNoInteriorCutIsF0Only(t *testing.T) {
	out := mustOutPartition(t, [3]int64{2, 2, 2})
	w := block.NewSized([3]int64{0, 0, 0}, [3]int64{2, 2, 2}, 1)

	fblocks := Decompose(w, out, false)
	require.NotNil(t, fblocks[0])
	require.Equal(t, w.Shape, fblocks[0].Shape)
	require.Equal(t, w.Origin, fblocks[0].Origin)
	for i := 1; i < 8; i++ {
		require.Nil(t, fblocks[i])
	}
}

// A read block cut on all three axes produces all eight F-blocks, each a
// single-element cuboid, partitioning the read block exactly.
func TestDecomposeCutOnAllAxesProducesEightPieces(t *testing.T) {
	out := mustOutPartition(t, [3]int64{1, 1, 1})
	w := block.NewSized([3]int64{0, 0, 0}, [3]int64{2, 2, 2}, 1)

	fblocks := Decompose(w, out, false)
	var total int64
	for _, fb := range fblocks {
		require.NotNil(t, fb)
		require.Equal(t, [3]int64{1, 1, 1}, fb.Shape)
		total += fb.Volume()
	}
	require.Equal(t, w.Volume(), total)
}

func TestDecomposeWithDataCopiesBytes(t *testing.T) {
	out := mustOutPartition(t, [3]int64{2, 1, 2})
	w := block.NewSized([3]int64{0, 0, 0}, [3]int64{2, 2, 2}, 1)
	data := make([]byte, w.Volume())
	for i := range data {
		data[i] = byte(i + 1)
	}
	w.Data = block.NewData(data)

	fblocks := Decompose(w, out, true)
	require.NotNil(t, fblocks[0])
	require.Equal(t, fblocks[0].Volume(), fblocks[0].Data.MemUsage())
	require.NotNil(t, fblocks[2])
	require.Equal(t, fblocks[2].Volume(), fblocks[2].Data.MemUsage())
}

func TestF0ExtentNoInteriorBoundary(t *testing.T) {
	require.Equal(t, int64(4), f0Extent(0, 4, 4))
	require.Equal(t, int64(4), f0Extent(4, 4, 4))
}

func TestF0ExtentInteriorBoundary(t *testing.T) {
	require.Equal(t, int64(1), f0Extent(0, 2, 1))
	require.Equal(t, int64(1), f0Extent(1, 3, 2))
}
