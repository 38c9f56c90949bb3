package repartition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/keep/partition"
)

// chdirTemp switches the process into a fresh temp directory for the
// duration of the test, since Block file names are relative.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

// S1: A=(2,2,2), I=(2,2,2), O=(2,1,2), method=keep. Expected 3 seeks.
func TestRunScenarioS1(t *testing.T) {
	dir := chdirTemp(t)
	array := &partition.Array{Shape: [3]int64{2, 2, 2}}
	in, err := partition.New([3]int64{2, 2, 2}, "in", array, partition.FillRandom, 1)
	require.NoError(t, err)
	out, err := partition.New([3]int64{2, 1, 2}, "out", array, partition.FillZeros, 1)
	require.NoError(t, err)

	res, err := Run(context.Background(), in, out, MethodKeep, nil, false)
	require.NoError(t, err)
	require.Equal(t, 3, res.Seeks)
	require.Equal(t, int64(16), res.TotalBytes) // 2 * 2*2*2 * elementSize(1)

	// A=(2,2,2) with I=(2,2,2) is a single whole-array block, named
	// in_block_0.bin (partition.New's array-backed naming), not in.bin.
	_, err = os.Stat(filepath.Join(dir, "in_block_0.bin"))
	require.NoError(t, err)
}

// S2: A=(2,2,2), I=(2,1,2), O=(2,2,2), method=baseline. Expected 6 seeks.
func TestRunScenarioS2Baseline(t *testing.T) {
	chdirTemp(t)
	array := &partition.Array{Shape: [3]int64{2, 2, 2}}
	in, err := partition.New([3]int64{2, 1, 2}, "in", array, partition.FillRandom, 1)
	require.NoError(t, err)
	out, err := partition.New([3]int64{2, 2, 2}, "out", array, partition.FillZeros, 1)
	require.NoError(t, err)

	res, err := Run(context.Background(), in, out, MethodBaseline, nil, false)
	require.NoError(t, err)
	require.Equal(t, 6, res.Seeks)
}

func TestRunDryRunTouchesNoFiles(t *testing.T) {
	dir := chdirTemp(t)
	array := &partition.Array{Shape: [3]int64{2, 2, 2}}
	in, err := partition.New([3]int64{2, 2, 2}, "in", array, partition.FillNone, 1)
	require.NoError(t, err)
	out, err := partition.New([3]int64{2, 1, 2}, "out", array, partition.FillNone, 1)
	require.NoError(t, err)

	res, err := Run(context.Background(), in, out, MethodKeep, nil, true)
	require.NoError(t, err)
	require.Equal(t, 3, res.Seeks)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// S4: A=(12,12,12), I=(4,4,4), O=(3,3,3), method=keep, over a read grid
// with multiple blocks along every axis. Reconstructing the whole array
// from the output partition must reproduce exactly what was written to
// the input partition -- the round trip this method exists to preserve.
func TestRunScenarioS4RoundTripIsByteExact(t *testing.T) {
	chdirTemp(t)
	array := &partition.Array{Shape: [3]int64{12, 12, 12}}
	in, err := partition.New([3]int64{4, 4, 4}, "in", array, partition.FillRandom, 1)
	require.NoError(t, err)
	out, err := partition.New([3]int64{3, 3, 3}, "out", array, partition.FillNone, 1)
	require.NoError(t, err)

	res, err := Run(context.Background(), in, out, MethodKeep, nil, false)
	require.NoError(t, err)
	require.Equal(t, int64(2*12*12*12), res.TotalBytes)

	wholeFromIn, err := partition.New([3]int64{12, 12, 12}, "whole_in", nil, partition.FillNone, 1)
	require.NoError(t, err)
	fromIn := wholeFromIn.Blocks[wholeFromIn.Order[0]]
	_, _, _, err = in.ReadBlock(fromIn)
	require.NoError(t, err)

	wholeFromOut, err := partition.New([3]int64{12, 12, 12}, "whole_out", nil, partition.FillNone, 1)
	require.NoError(t, err)
	fromOut := wholeFromOut.Blocks[wholeFromOut.Order[0]]
	_, _, _, err = out.ReadBlock(fromOut)
	require.NoError(t, err)

	require.Equal(t, fromIn.Data.Get(0, fromIn.ByteSize()), fromOut.Data.Get(0, fromOut.ByteSize()))
}
