package blockio

import (
	"hash/crc32"

	"github.com/stratadb/strata/rows"
	"github.com/stratadb/strata/util"
)

/*
Binary block codec. Blocks are encoded column-major: a fixed header, the
schema, one vector per column, and a trailing CRC of everything preceding it.
Nullable columns carry a null bitmap ahead of their values; null slots are
zero-filled. String vectors store a cumulative offset array followed by the
string bytes.

The layout is:

    magic    u32
    version  u8
    ncols    u32
    nrows    u32
    ncols *  (name prefixed-string, type u8, nullable u8)
    ncols *  vector
    crc      u32     IEEE CRC-32 of all preceding bytes
*/

////////////////////////////////////////////////////////////////////////////////

const (
	blockMagic   uint32 = 0x4b425453 // "STBK"
	codecVersion uint8  = 1
)

// Encode serializes a batch into the block wire format.
func Encode(batch *rows.Batch) ([]byte, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, encodedSize(batch))
	offset := util.U32(buf, blockMagic)
	offset += util.U8(buf[offset:], codecVersion)
	offset += util.U32(buf[offset:], uint32(len(batch.Schema.Columns)))
	offset += util.U32(buf[offset:], uint32(len(batch.Rows)))
	for _, col := range batch.Schema.Columns {
		offset += util.WritePrefixedString(buf[offset:], col.Name)
		offset += util.U8(buf[offset:], uint8(col.Type))
		offset += util.Bool(buf[offset:], col.Nullable)
	}
	for i, col := range batch.Schema.Columns {
		offset += encodeVector(buf[offset:], batch, i, col)
	}
	util.U32(buf[offset:], crc32.ChecksumIEEE(buf[:offset]))
	return buf, nil
}

func encodedSize(batch *rows.Batch) int {
	nrows := len(batch.Rows)
	size := 4 + 1 + 4 + 4 // magic, version, ncols, nrows
	for i, col := range batch.Schema.Columns {
		size += 4 + len(col.Name) + 1 + 1
		if col.Nullable {
			size += (nrows + 7) / 8
		}
		switch col.Type {
		case rows.TypeInt64, rows.TypeFloat64, rows.TypeTimestamp:
			size += 8 * nrows
		case rows.TypeBool:
			size += nrows
		case rows.TypeString:
			size += 4 * (nrows + 1)
			for _, row := range batch.Rows {
				if !row[i].Null {
					size += len(row[i].Str)
				}
			}
		}
	}
	return size + 4 // crc
}

func encodeVector(buf []byte, batch *rows.Batch, idx int, col rows.Column) int {
	offset := 0
	if col.Nullable {
		bitmap := buf[:(len(batch.Rows)+7)/8]
		for i, row := range batch.Rows {
			if row[idx].Null {
				bitmap[i/8] |= 1 << (i % 8)
			}
		}
		offset += len(bitmap)
	}
	switch col.Type {
	case rows.TypeInt64, rows.TypeTimestamp:
		for _, row := range batch.Rows {
			offset += util.U64(buf[offset:], uint64(row[idx].Int))
		}
	case rows.TypeFloat64:
		for _, row := range batch.Rows {
			offset += util.F64(buf[offset:], row[idx].Float)
		}
	case rows.TypeBool:
		for _, row := range batch.Rows {
			offset += util.Bool(buf[offset:], row[idx].Bool)
		}
	case rows.TypeString:
		cumulative := uint32(0)
		offset += util.U32(buf[offset:], 0)
		for _, row := range batch.Rows {
			if !row[idx].Null {
				cumulative += uint32(len(row[idx].Str))
			}
			offset += util.U32(buf[offset:], cumulative)
		}
		for _, row := range batch.Rows {
			if !row[idx].Null {
				offset += copy(buf[offset:], row[idx].Str)
			}
		}
	}
	return offset
}

// Decode parses a block payload, verifying the checksum.
func Decode(data []byte) (*rows.Batch, error) {
	if len(data) < 17 {
		return nil, NewCorruptBlockError("short payload")
	}
	var magic uint32
	offset := util.ReadU32(data, &magic)
	if magic != blockMagic {
		return nil, ErrBadMagic
	}
	var version uint8
	offset += util.ReadU8(data[offset:], &version)
	if version != codecVersion {
		return nil, NewUnsupportedVersionError(uint32(version))
	}
	crc := crc32.ChecksumIEEE(data[:len(data)-4])
	var stored uint32
	util.ReadU32(data[len(data)-4:], &stored)
	if crc != stored {
		return nil, NewCrcMismatchError(stored, crc)
	}
	var ncols, nrows uint32
	offset += util.ReadU32(data[offset:], &ncols)
	offset += util.ReadU32(data[offset:], &nrows)
	columns := make([]rows.Column, ncols)
	for i := range columns {
		var name string
		offset += util.ReadPrefixedString(data[offset:], &name)
		var typ uint8
		offset += util.ReadU8(data[offset:], &typ)
		var nullable bool
		offset += util.ReadBool(data[offset:], &nullable)
		columns[i] = rows.Column{Name: name, Type: rows.Type(typ), Nullable: nullable}
	}
	batch := rows.NewBatch(rows.NewSchema(columns...))
	if nrows > 0 {
		batch.Rows = make([]rows.Row, nrows)
		for i := range batch.Rows {
			batch.Rows[i] = make(rows.Row, ncols)
		}
	}
	for i, col := range columns {
		n, err := decodeVector(data[offset:], batch, i, col)
		if err != nil {
			return nil, err
		}
		offset += n
	}
	return batch, nil
}

func decodeVector(buf []byte, batch *rows.Batch, idx int, col rows.Column) (int, error) {
	nrows := len(batch.Rows)
	offset := 0
	nulls := make([]bool, nrows)
	if col.Nullable {
		bitmap := buf[:(nrows+7)/8]
		for i := range nulls {
			nulls[i] = bitmap[i/8]&(1<<(i%8)) != 0
		}
		offset += len(bitmap)
	}
	switch col.Type {
	case rows.TypeInt64, rows.TypeTimestamp:
		for i := range batch.Rows {
			var x uint64
			offset += util.ReadU64(buf[offset:], &x)
			batch.Rows[i][idx] = rows.Value{Type: col.Type, Int: int64(x), Null: nulls[i]}
		}
	case rows.TypeFloat64:
		for i := range batch.Rows {
			var x float64
			offset += util.ReadF64(buf[offset:], &x)
			batch.Rows[i][idx] = rows.Value{Type: col.Type, Float: x, Null: nulls[i]}
		}
	case rows.TypeBool:
		for i := range batch.Rows {
			var x bool
			offset += util.ReadBool(buf[offset:], &x)
			batch.Rows[i][idx] = rows.Value{Type: col.Type, Bool: x, Null: nulls[i]}
		}
	case rows.TypeString:
		offsets := make([]uint32, nrows+1)
		for i := range offsets {
			offset += util.ReadU32(buf[offset:], &offsets[i])
		}
		blob := buf[offset : offset+int(offsets[nrows])]
		offset += len(blob)
		for i := range batch.Rows {
			value := rows.Value{Type: col.Type, Null: nulls[i]}
			if !nulls[i] {
				value.Str = string(blob[offsets[i]:offsets[i+1]])
			}
			batch.Rows[i][idx] = value
		}
	default:
		return 0, NewCorruptBlockError("unknown column type")
	}
	return offset, nil
}
