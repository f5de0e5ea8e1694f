package bitset

import "math/bits"

/*
Bitset is a fixed-width bitset backed by a byte slice. Bit indexes wrap at the
bit length, so callers hashing into the set do not need to reduce their hashes
first.
*/

////////////////////////////////////////////////////////////////////////////////

type Bitset []byte

// New returns a bitset with capacity for sizeBits bits.
func New(sizeBits int) Bitset {
	return make([]byte, (sizeBits+7)/8)
}

// Len returns the bit length of the set.
func (b Bitset) Len() uint64 {
	return uint64(len(b)) * 8
}

func (b Bitset) SetBit(i uint64) {
	m := i % b.Len()
	b[m/8] |= 1 << (m % 8)
}

func (b Bitset) HasBit(i uint64) bool {
	m := i % b.Len()
	return b[m/8]&(1<<(m%8)) != 0
}

// Contains returns true if every bit set in other is set in b. The sets must
// be the same length.
func (b Bitset) Contains(other Bitset) bool {
	for i, v := range other {
		if b[i]&v != v {
			return false
		}
	}
	return true
}

// Union merges other into b in place. The sets must be the same length.
func (b Bitset) Union(other Bitset) {
	for i, v := range other {
		b[i] |= v
	}
}

// Count returns the number of set bits.
func (b Bitset) Count() int {
	n := 0
	for _, v := range b {
		n += bits.OnesCount8(v)
	}
	return n
}

func (b Bitset) Serialize() []byte {
	return b
}
