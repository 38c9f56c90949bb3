package block

import (
	"os"
	"time"

	"github.com/grailbio/keep/kerrors"
)

// GetDataBlock assembles and returns the block of data from self that
// intersects with other, in self's run order. Used to stage data for
// cross-block writes.
func (b *Block) GetDataBlock(other *Block) *Block {
	if !b.Overlap(other) {
		return New([3]int64{-1, -1, -1}, [3]int64{0, 0, 0})
	}
	origin, shape, runs := b.Offsets(other)
	out := NewSized(origin, shape, b.ElementSize)
	buf := make([]byte, 0, shape[0]*shape[1]*shape[2]*b.ElementSize)
	for _, r := range runs {
		buf = append(buf, b.Data.Get(r.Start*b.ElementSize, (r.End+1)*b.ElementSize)...)
	}
	out.Data = NewData(buf)
	return out
}

// PutDataBlock copies other's bytes into self's run positions. other's
// shape must equal the intersection of self and other.
func (b *Block) PutDataBlock(other *Block) error {
	if !b.Overlap(other) {
		return nil
	}
	_, _, runs := b.Offsets(other)
	dataOffset := int64(0)
	for _, r := range runs {
		n := (r.End - r.Start + 1) * b.ElementSize
		b.Data.Put(r.Start*b.ElementSize, other.Data.Get(dataOffset, dataOffset+n))
		dataOffset += n
	}
	if b.Data.MemUsage() > b.ByteSize() {
		return kerrors.New(kerrors.Invariant, "block %v: %dB in memory exceeds capacity %dB", b.Origin, b.Data.MemUsage(), b.ByteSize())
	}
	if dataOffset != other.Data.MemUsage() {
		return kerrors.New(kerrors.Invariant, "block %v is %dB but only %dB were copied", other.Origin, other.Data.MemUsage(), dataOffset)
	}
	return nil
}

// Read reads the whole block from FileName, which must contain exactly
// ByteSize bytes and nothing else.
func (b *Block) Read() (bytesRead int64, ioTime time.Duration, err error) {
	if b.Data.MemUsage() == b.ByteSize() {
		return b.Data.MemUsage(), 0, nil
	}
	start := time.Now()
	f, oerr := os.Open(b.FileName)
	if oerr != nil {
		return 0, 0, kerrors.Wrap(kerrors.IO, oerr, "open "+b.FileName)
	}
	defer f.Close()
	buf := make([]byte, b.ByteSize())
	if _, rerr := readFull(f, buf); rerr != nil {
		return 0, 0, kerrors.Wrap(kerrors.IO, rerr, "read "+b.FileName)
	}
	ioTime = time.Since(start)
	b.Data.Put(0, buf)
	if b.Data.MemUsage() != b.ByteSize() {
		return 0, 0, kerrors.New(kerrors.Invariant, "block %v contains %dB but shape is %dB", b.Origin, b.Data.MemUsage(), b.ByteSize())
	}
	return b.Data.MemUsage(), ioTime, nil
}

// Write writes the (complete) block to FileName.
func (b *Block) Write() (bytesWritten int64, ioTime time.Duration, err error) {
	if b.Data.MemUsage() <= 0 {
		return 0, 0, kerrors.New(kerrors.Invariant, "cannot write block %v with no data", b.Origin)
	}
	if b.Data.MemUsage() != b.ByteSize() {
		return 0, 0, kerrors.New(kerrors.Invariant, "block %v shape doesn't match data size: %dB vs %dB", b.Origin, b.ByteSize(), b.Data.MemUsage())
	}
	start := time.Now()
	f, oerr := os.OpenFile(b.FileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if oerr != nil {
		return 0, 0, kerrors.Wrap(kerrors.IO, oerr, "create "+b.FileName)
	}
	defer f.Close()
	n, werr := f.Write(b.Data.Get(0, b.ByteSize()))
	if werr != nil {
		return 0, 0, kerrors.Wrap(kerrors.IO, werr, "write "+b.FileName)
	}
	return int64(n), time.Since(start), nil
}

// ReadFrom reads the data sections of self's buffer that come from
// other's file, where other in general has a different origin/shape than
// self. When the shapes and origins match, this degenerates to a single
// whole-file Read.
func (b *Block) ReadFrom(other *Block) (bytesRead int64, seeks int, ioTime time.Duration, err error) {
	if !b.Overlap(other) {
		return 0, 0, 0, nil
	}
	if b.Shape == other.Shape && b.Origin == other.Origin {
		b.FileName = other.FileName
		n, t, rerr := b.Read()
		return n, 1, t, rerr
	}

	origin, shape, runs := other.Offsets(b)
	if len(runs) == 0 {
		return 0, 0, 0, nil
	}

	f, oerr := os.Open(other.FileName)
	if oerr != nil {
		return 0, 0, 0, kerrors.Wrap(kerrors.IO, oerr, "open "+other.FileName)
	}
	defer f.Close()

	buf := make([]byte, 0, shape[0]*shape[1]*shape[2]*other.ElementSize)
	var total time.Duration
	for _, r := range runs {
		byteStart := r.Start * other.ElementSize
		n := (r.End - r.Start + 1) * other.ElementSize
		chunk := make([]byte, n)
		start := time.Now()
		if _, rerr := f.ReadAt(chunk, byteStart); rerr != nil {
			return 0, 0, 0, kerrors.Wrap(kerrors.IO, rerr, "read "+other.FileName)
		}
		total += time.Since(start)
		buf = append(buf, chunk...)
		bytesRead += n
	}

	dataBlock := NewSized(origin, shape, other.ElementSize)
	dataBlock.Data = NewData(buf)
	if perr := b.PutDataBlock(dataBlock); perr != nil {
		return 0, 0, 0, perr
	}
	return bytesRead, len(runs), total, nil
}

// WriteTo writes the relevant sections of self's buffer into other's
// file, opening it in create-or-modify mode so bytes of other not covered
// by self are preserved.
func (b *Block) WriteTo(other *Block) (bytesWritten int64, seeks int, ioTime time.Duration, err error) {
	if !b.Overlap(other) {
		return 0, 0, 0, nil
	}
	if other.FileName == "" {
		return 0, 0, 0, kerrors.New(kerrors.Invariant, "block %v has no file name", other.Origin)
	}
	if b.Shape == other.Shape && b.Origin == other.Origin {
		other.Data = b.Data
		n, t, werr := other.Write()
		return n, 1, t, werr
	}

	dataBlock := b.GetDataBlock(other)
	_, _, runs := other.Offsets(dataBlock)
	if len(runs) == 0 {
		return 0, 0, 0, nil
	}

	mode := os.O_WRONLY | os.O_CREATE
	if _, statErr := os.Stat(other.FileName); statErr != nil {
		mode |= os.O_TRUNC
	}
	f, oerr := os.OpenFile(other.FileName, mode, 0644)
	if oerr != nil {
		return 0, 0, 0, kerrors.Wrap(kerrors.IO, oerr, "open "+other.FileName)
	}
	defer f.Close()

	dataOffset := int64(0)
	var total time.Duration
	for _, r := range runs {
		n := (r.End - r.Start + 1) * other.ElementSize
		chunk := dataBlock.Data.Get(dataOffset, dataOffset+n)
		byteStart := r.Start * other.ElementSize
		start := time.Now()
		wrote, werr := f.WriteAt(chunk, byteStart)
		if werr != nil {
			return 0, 0, 0, kerrors.Wrap(kerrors.IO, werr, "write "+other.FileName)
		}
		total += time.Since(start)
		bytesWritten += int64(wrote)
		dataOffset += n
	}
	return bytesWritten, len(runs), total, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
