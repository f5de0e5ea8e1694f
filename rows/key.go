package rows

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaolacci/murmur3"
)

/*
Conflict keys. A Key is the binary encoding of the key column values of one
row, usable directly as a map key for exact matching. A Digest is a 128-bit
murmur3 hash of the key, used by the membership filters to route and prune
without touching row data.
*/

////////////////////////////////////////////////////////////////////////////////

// Key is an encoded conflict key.
type Key string

// Digest is a 128-bit hash of a key.
type Digest struct {
	H1 uint64
	H2 uint64
}

// EncodeKey encodes the values of row at the supplied column positions.
func EncodeKey(row Row, idxs []int) Key {
	buf := make([]byte, 0, 16*len(idxs))
	for _, idx := range idxs {
		v := row[idx]
		buf = append(buf, byte(v.Type))
		if v.Null {
			buf = append(buf, 1)
			continue
		}
		buf = append(buf, 0)
		switch v.Type {
		case TypeInt64, TypeTimestamp:
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v.Int))
		case TypeFloat64:
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.Float))
		case TypeString:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.Str)))
			buf = append(buf, v.Str...)
		case TypeBool:
			if v.Bool {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
	}
	return Key(buf)
}

// Digest returns the 128-bit hash of the key.
func (k Key) Digest() Digest {
	h1, h2 := murmur3.Sum128([]byte(k))
	return Digest{H1: h1, H2: h2}
}

func (k Key) String() string {
	return fmt.Sprintf("%x", string(k))
}
