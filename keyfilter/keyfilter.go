package keyfilter

import (
	"math"

	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/util"
	"github.com/stratadb/strata/util/bitset"
)

/*
Keyfilter implements an approximate membership filter over conflict key
digests. Each block carries one filter covering the keys it holds. A filter
answers "definitely not present" or "possibly present"; mutation routing uses
it to skip blocks that cannot contain a key without reading row data.

The filter is a standard bloom filter. The two halves of the 128-bit key
digest seed a double hashing scheme, so adding and probing never rehash the
key bytes.
*/

////////////////////////////////////////////////////////////////////////////////

// DefaultFalsePositiveRate is the false positive rate filters are sized for
// when the caller does not specify one.
const DefaultFalsePositiveRate = 0.01

const minBits = 64

// Filter is an approximate membership filter.
type Filter struct {
	bits   bitset.Bitset
	hashes int
}

// New returns a filter sized for expectedKeys at the given false positive
// rate.
func New(expectedKeys int, falsePositiveRate float64) *Filter {
	m := optimalBits(expectedKeys, falsePositiveRate)
	return &Filter{
		bits:   bitset.New(m),
		hashes: optimalHashes(m, expectedKeys),
	}
}

func optimalBits(n int, p float64) int {
	if n < 1 {
		return minBits
	}
	m := int(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	return util.Max(m, minBits)
}

func optimalHashes(m, n int) int {
	if n < 1 {
		return 1
	}
	k := int(math.Round(float64(m) / float64(n) * math.Ln2))
	return util.Max(k, 1)
}

// Add inserts a key digest into the filter.
func (f *Filter) Add(d rows.Digest) {
	for i := 0; i < f.hashes; i++ {
		f.bits.SetBit(d.H1 + uint64(i)*d.H2)
	}
}

// MayContain returns false if the digest is definitely not in the filter.
func (f *Filter) MayContain(d rows.Digest) bool {
	for i := 0; i < f.hashes; i++ {
		if !f.bits.HasBit(d.H1 + uint64(i)*d.H2) {
			return false
		}
	}
	return true
}

// FillRatio returns the fraction of set bits. High fill ratios degrade filter
// selectivity.
func (f *Filter) FillRatio() float64 {
	return float64(f.bits.Count()) / float64(f.bits.Len())
}

// Size returns the serialized size of the filter in bytes.
func (f *Filter) Size() uint64 {
	return uint64(8 + len(f.bits))
}

// Serialize returns the binary encoding of the filter.
func (f *Filter) Serialize() []byte {
	buf := make([]byte, f.Size())
	offset := util.U32(buf, uint32(f.hashes))
	offset += util.U32(buf[offset:], uint32(len(f.bits)))
	copy(buf[offset:], f.bits.Serialize())
	return buf
}

// Parse decodes a serialized filter.
func Parse(data []byte) (*Filter, error) {
	if len(data) < 8 {
		return nil, NewCorruptFilterError(len(data))
	}
	var hashes, nbytes uint32
	offset := util.ReadU32(data, &hashes)
	offset += util.ReadU32(data[offset:], &nbytes)
	if len(data[offset:]) < int(nbytes) || hashes == 0 {
		return nil, NewCorruptFilterError(len(data))
	}
	bits := bitset.New(int(nbytes) * 8)
	copy(bits, data[offset:offset+int(nbytes)])
	return &Filter{bits: bits, hashes: int(hashes)}, nil
}
