package keep

import "github.com/grailbio/keep/block"

// SeekCount predicts the number of disk seeks needed to move data between
// memoryBlocks (the blocks held in memory, either read or write blocks)
// and diskBlocks (the partition blocks on the other side of the
// transfer), using only the blocks' geometry.
//
// For each disk block D, and for each axis d, let M_d be the set of
// distinct end coordinates (inclusive) of every memory block along axis
// d, and c_d the count of those coordinates that fall strictly inside D's
// span on that axis (D.origin_d <= m < D.origin_d + D.shape_d - 1): an
// interior cut forces an extra seek when D is written or read axis-2
// fastest. D's own contribution is:
//
//	(c_2+1) * shape_0 * shape_1   if c_2 > 0
//	(c_1+1) * shape_0             else if c_1 > 0
//	c_0+1                         else if c_0 > 0
//	1                             otherwise
func SeekCount(memoryBlocks, diskBlocks []*block.Block) int {
	var ends [3]map[int64]bool
	for d := 0; d < 3; d++ {
		ends[d] = map[int64]bool{}
	}
	for _, m := range memoryBlocks {
		e := m.End()
		for d := 0; d < 3; d++ {
			ends[d][e[d]] = true
		}
	}

	total := 0
	for _, d := range diskBlocks {
		var c [3]int
		for axis := 0; axis < 3; axis++ {
			lo := d.Origin[axis]
			hi := d.Origin[axis] + d.Shape[axis] - 1
			for m := range ends[axis] {
				if m >= lo && m < hi {
					c[axis]++
				}
			}
		}
		switch {
		case c[2] > 0:
			total += (c[2] + 1) * int(d.Shape[0]*d.Shape[1])
		case c[1] > 0:
			total += (c[1] + 1) * int(d.Shape[0])
		case c[0] > 0:
			total += c[0] + 1
		default:
			total += 1
		}
	}
	return total
}
