package main

import (
	"bytes"

	"github.com/grailbio/keep/block"
	"github.com/grailbio/keep/kerrors"
	"github.com/grailbio/keep/partition"
)

// verifyByteExact reconstructs the whole array from the input partition
// (shape iShape) and from the output partition (shape oShape) and
// compares them byte for byte, the --test-data CLI mode.
func verifyByteExact(array *partition.Array, iShape, oShape [3]int64) error {
	in, err := partition.New(iShape, "in", array, partition.FillNone, *elementSize)
	if err != nil {
		return err
	}
	out, err := partition.New(oShape, "out", array, partition.FillNone, *elementSize)
	if err != nil {
		return err
	}

	whole := block.NewSized([3]int64{0, 0, 0}, array.Shape, *elementSize)
	fromIn := block.NewSized(whole.Origin, whole.Shape, whole.ElementSize)
	if _, _, _, err := in.ReadBlock(fromIn); err != nil {
		return err
	}

	fromOut := block.NewSized(whole.Origin, whole.Shape, whole.ElementSize)
	if _, _, _, err := out.ReadBlock(fromOut); err != nil {
		return err
	}

	a := fromIn.Data.Get(0, fromIn.ByteSize())
	b := fromOut.Data.Get(0, fromOut.ByteSize())
	if !bytes.Equal(a, b) {
		return kerrors.New(kerrors.Invariant, "input and output partitions diverge: reconstructed arrays are not byte-exact")
	}
	return nil
}
