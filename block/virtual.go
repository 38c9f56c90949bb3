package block

// PutVirtual records n bytes at a logical offset without retaining any
// backing storage. It is used by the keep planner's dry-run memory
// estimator, which only needs byte counts -- never the content -- to
// simulate peak cache occupancy for an array far larger than the
// process's own memory bound.
func (d *Data) PutVirtual(n int64) {
	d.memSize += n
}

// AddVirtualBytes records n bytes of synthetic occupancy on the block,
// see Data.PutVirtual.
func (b *Block) AddVirtualBytes(n int64) {
	b.Data.PutVirtual(n)
}
