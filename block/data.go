package block

// fragment is one (offset, bytes) put recorded by Data. Fragments are
// merged lazily on Get; two fragments that never overlap (a precondition
// the keep planner maintains) are indistinguishable from a contiguous
// buffer once merged.
type fragment struct {
	offset int64
	data   []byte
}

// Data is a grow-only byte buffer for a Block. It is physically stored as
// a list of fragments rather than a preallocated contiguous array, so that
// a write block's memory usage never exceeds the bytes actually inserted
// into it -- important while the scheduler is tracking peak RAM against a
// caller-supplied bound.
type Data struct {
	frags   []fragment
	memSize int64
	merged  []byte // non-nil once merge() has run and no Put has happened since
}

// NewData returns a Data buffer pre-populated with data at offset 0.
func NewData(data []byte) *Data {
	d := &Data{}
	if len(data) > 0 {
		d.Put(0, data)
	}
	return d
}

// Put records that data belongs at offset in the logical buffer.
func (d *Data) Put(offset int64, data []byte) {
	d.frags = append(d.frags, fragment{offset: offset, data: data})
	d.memSize += int64(len(data))
	d.merged = nil
}

// Get returns the bytes [start, end) of the logical buffer, merging
// fragments first if necessary.
func (d *Data) Get(start, end int64) []byte {
	d.merge()
	return d.merged[start:end]
}

// Clear drops the buffer contents.
func (d *Data) Clear() {
	d.frags = nil
	d.memSize = 0
	d.merged = nil
}

// MemUsage returns the sum of byte counts recorded by Put.
func (d *Data) MemUsage() int64 { return d.memSize }

func (d *Data) merge() {
	if d.merged != nil && int64(len(d.merged)) == d.memSize {
		return
	}
	if len(d.frags) == 1 && d.frags[0].offset == 0 {
		d.merged = d.frags[0].data
		return
	}
	sorted := make([]fragment, len(d.frags))
	copy(sorted, d.frags)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].offset > sorted[j].offset; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	buf := make([]byte, d.memSize)
	for _, f := range sorted {
		copy(buf[f.offset:], f.data)
	}
	d.merged = buf
}
