package block

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// S6: Block((0,0,0),(4,4,4)).block_offsets(Block((1,2,3),(5,6,7))).
func TestOffsetsScenarioS6(t *testing.T) {
	a := New([3]int64{0, 0, 0}, [3]int64{4, 4, 4})
	b := New([3]int64{1, 2, 3}, [3]int64{5, 6, 7})

	origin, shape, runs := a.Offsets(b)
	require.Equal(t, [3]int64{1, 2, 3}, origin)
	require.Equal(t, [3]int64{3, 2, 1}, shape)

	want := []Run{{27, 27}, {31, 31}, {43, 43}, {47, 47}, {59, 59}, {63, 63}}
	require.Equal(t, want, runs)
}

// Invariant 1: a.block_offsets(b).origin == b.block_offsets(a).origin, and
// shapes coincide.
func TestOffsetsSymmetricOriginAndShape(t *testing.T) {
	a := New([3]int64{0, 0, 0}, [3]int64{4, 4, 4})
	b := New([3]int64{1, 2, 3}, [3]int64{5, 6, 7})

	originA, shapeA, _ := a.Offsets(b)
	originB, shapeB, _ := b.Offsets(a)
	require.Equal(t, originA, originB)
	require.Equal(t, shapeA, shapeB)
}

// Invariant 2: b.block_offsets(b) yields a single run covering the whole
// block.
func TestOffsetsSelfCoversWholeBlock(t *testing.T) {
	b := New([3]int64{2, 3, 4}, [3]int64{5, 6, 7})
	origin, shape, runs := b.Offsets(b)
	require.Equal(t, b.Origin, origin)
	require.Equal(t, b.Shape, shape)
	require.Equal(t, []Run{{0, b.Volume() - 1}}, runs)
}

func TestOverlapBoundary(t *testing.T) {
	a := New([3]int64{0, 0, 0}, [3]int64{2, 2, 2})
	touching := New([3]int64{1, 1, 1}, [3]int64{2, 2, 2})
	require.True(t, a.Overlap(touching))

	disjoint := New([3]int64{2, 2, 2}, [3]int64{2, 2, 2})
	require.False(t, a.Overlap(disjoint))

	empty := New([3]int64{0, 0, 0}, [3]int64{0, 2, 2})
	require.False(t, a.Overlap(empty))
	require.True(t, empty.Empty())
}

func TestGetPutDataBlockRoundTrip(t *testing.T) {
	a := New([3]int64{0, 0, 0}, [3]int64{4, 4, 4})
	data := make([]byte, a.Volume())
	for i := range data {
		data[i] = byte(i)
	}
	a.Data = NewData(data)

	sub := New([3]int64{1, 1, 1}, [3]int64{2, 2, 2})
	extracted := a.GetDataBlock(sub)
	require.Equal(t, sub.Shape, extracted.Shape)

	dst := New([3]int64{1, 1, 1}, [3]int64{2, 2, 2})
	require.NoError(t, dst.PutDataBlock(extracted))
	require.True(t, dst.Complete())

	direct := a.GetDataBlock(dst)
	require.Equal(t, direct.Data.Get(0, direct.Volume()), dst.Data.Get(0, dst.Volume()))
}

func TestWriteToThenReadFromIsIdentity(t *testing.T) {
	dir := t.TempDir()
	whole := New([3]int64{0, 0, 0}, [3]int64{4, 4, 4})
	whole.FileName = filepath.Join(dir, "whole.bin")
	data := make([]byte, whole.Volume())
	for i := range data {
		data[i] = byte(i + 1)
	}
	whole.Data = NewData(data)
	_, _, err := whole.Write()
	require.NoError(t, err)
	whole.Clear()

	sub := New([3]int64{1, 1, 1}, [3]int64{2, 2, 2})
	source := New(whole.Origin, whole.Shape)
	source.FileName = whole.FileName
	n, _, _, err := sub.ReadFrom(source)
	require.NoError(t, err)
	require.True(t, n > 0)
	require.True(t, sub.Complete())

	target := New(whole.Origin, whole.Shape)
	target.FileName = filepath.Join(dir, "target.bin")
	zeros := make([]byte, whole.Volume())
	target.Data = NewData(zeros)
	_, _, err = target.Write()
	require.NoError(t, err)
	target.Clear()

	_, _, _, err = sub.WriteTo(target)
	require.NoError(t, err)

	readBack := New(sub.Origin, sub.Shape)
	src2 := New(whole.Origin, whole.Shape)
	src2.FileName = target.FileName
	_, _, _, err = readBack.ReadFrom(src2)
	require.NoError(t, err)
	require.Equal(t, sub.Data.Get(0, sub.Volume()), readBack.Data.Get(0, readBack.Volume()))

	_ = os.Remove
}

func TestEmptyBlockOpsAreNoOps(t *testing.T) {
	a := New([3]int64{0, 0, 0}, [3]int64{2, 2, 2})
	disjoint := New([3]int64{5, 5, 5}, [3]int64{2, 2, 2})
	disjoint.FileName = filepath.Join(t.TempDir(), "x.bin")

	n, seeks, _, err := a.ReadFrom(disjoint)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, seeks)
}
